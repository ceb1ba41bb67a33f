package logic

import "strings"

// Source is the random source used to pick templates.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// Pick returns a uniformly chosen entry of pool, or fallback when the pool
// is empty or the chosen entry is blank.
func Pick(src Source, pool []string, fallback string) string {
	if len(pool) == 0 || src == nil {
		return fallback
	}
	choice := pool[src.IntN(len(pool))]
	if strings.TrimSpace(choice) == "" {
		return fallback
	}
	return choice
}

// Tagged prefixes text with the event-class tag.
func Tagged(tag, text string) string {
	if tag == "" {
		return text
	}
	return tag + " " + text
}
