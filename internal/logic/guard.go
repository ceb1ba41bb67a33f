package logic

import (
	"sync"
	"time"
)

// Guard tracks the last permitted dispatch per event class and enforces a
// minimum quiet interval between dispatches of the same class.
type Guard struct {
	mu   sync.Mutex
	last map[EventClass]time.Time
}

// NewGuard creates a Guard with no prior dispatches.
func NewGuard() *Guard {
	return &Guard{last: make(map[EventClass]time.Time)}
}

// TryAcquire reports whether a dispatch of class is permitted at now.
// When permitted, now is recorded as the new last-fired time before
// returning, so a concurrent caller observes it. A class that never fired
// is always permitted.
func (g *Guard) TryAcquire(class EventClass, now time.Time, quiet time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[class]; ok && now.Sub(last) < quiet {
		return false
	}
	g.last[class] = now
	return true
}

// Last returns the last permitted dispatch time for class.
func (g *Guard) Last(class EventClass) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.last[class]
	return t, ok
}

// Gate evaluates the gate state at now from the last open time.
// RECENTLY_OPENED decays back to IDLE once quiet has elapsed; there is no timer.
func Gate(last time.Time, opened bool, now time.Time, quiet time.Duration) GateState {
	if opened && now.Sub(last) < quiet {
		return GateRecentlyOpened
	}
	return GateIdle
}
