// Package chat defines the messaging transport the doorbell talks through and
// its Telegram implementation.
package chat

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrDelivery wraps every per-message send or edit failure.
// Callers treat it as non-fatal: log and move on to the next destination.
var ErrDelivery = errors.New("chat: delivery failed")

// Button values carried by the inline keyboard attached to ring alerts.
const (
	ButtonOpen   = "open_notifications"
	ButtonIgnore = "ignore"
)

// MaxMessageLen is the longest text sent in one message; longer reports are split.
const MaxMessageLen = 4000

// Handle references a sent message so it can be edited later.
type Handle struct {
	ChatID    string
	MessageID int
}

// Origin identifies the chat an inbound event came from.
type Origin struct {
	ID   string
	Name string
}

// EventType classifies inbound events.
type EventType string

const (
	EventRing    EventType = "ring"
	EventCommand EventType = "command"
	EventButton  EventType = "button"
)

// Event is one inbound occurrence delivered to the doorbell service.
type Event struct {
	Type EventType
	// Name is the command name without the leading slash (EventCommand).
	Name string
	// Value is the button value, ButtonOpen or ButtonIgnore (EventButton).
	Value string
	// Message is the message the pressed button belongs to (EventButton).
	Message Handle
	// CallbackID must be acknowledged so the client stops its spinner (EventButton).
	CallbackID string
	// Text is an optional ring text (EventRing); empty picks a template.
	Text   string
	Origin Origin
}

// SendOptions tune an outbound message.
type SendOptions struct {
	// Buttons attaches the open/ignore keyboard.
	Buttons bool
	// Silent delivers without a notification sound.
	Silent bool
}

// Sender delivers a message to one destination.
type Sender interface {
	Send(ctx context.Context, dest, text string, opts SendOptions) (Handle, error)
}

// Editor replaces the text of a sent message, dropping its keyboard.
type Editor interface {
	Edit(ctx context.Context, h Handle, text string) error
}

// Transport is everything the doorbell service needs from a chat backend.
type Transport interface {
	Sender
	Editor
	// Acknowledge answers a button press callback.
	Acknowledge(ctx context.Context, callbackID string) error
}

// ParseCommand extracts the command name from a message text.
// "/open_gate@my_bot now" yields ("open_gate", true).
func ParseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", false
	}
	cmd, _, _ := strings.Cut(name[0], "@")
	if cmd == "" {
		return "", false
	}
	return strings.ToLower(cmd), true
}

// Chunk splits s into pieces of at most n runes.
func Chunk(s string, n int) []string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		end := n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[:end]))
		runes = runes[end:]
	}
	return out
}

// Report sends text to dest split into MaxMessageLen chunks. It stops at the
// first failure.
func Report(ctx context.Context, s Sender, dest, text string) error {
	for _, part := range Chunk(text, MaxMessageLen) {
		if _, err := s.Send(ctx, dest, part, SendOptions{Silent: true}); err != nil {
			return err
		}
	}
	return nil
}
