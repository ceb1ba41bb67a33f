package chat

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage is a message recorded by Fake.
type SentMessage struct {
	Handle  Handle
	Text    string
	Options SendOptions
}

// EditedMessage is an edit recorded by Fake.
type EditedMessage struct {
	Handle Handle
	Text   string
}

// Fake is an in-memory Transport for tests. Safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	nextID int
	sent   []SentMessage
	edits  []EditedMessage
	acks   []string

	// SendErrors fails sends to the given chat ids.
	SendErrors map[string]error
	// EditErrors fails edits of the given handles.
	EditErrors map[Handle]error
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{
		SendErrors: make(map[string]error),
		EditErrors: make(map[Handle]error),
	}
}

// Send records the message and returns a fresh handle.
func (f *Fake) Send(_ context.Context, dest, text string, opts SendOptions) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.SendErrors[dest]; err != nil {
		return Handle{}, fmt.Errorf("%w: fake send to %s: %w", ErrDelivery, dest, err)
	}
	f.nextID++
	h := Handle{ChatID: dest, MessageID: f.nextID}
	f.sent = append(f.sent, SentMessage{Handle: h, Text: text, Options: opts})
	return h, nil
}

// Edit records the edit.
func (f *Fake) Edit(_ context.Context, h Handle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.EditErrors[h]; err != nil {
		return fmt.Errorf("%w: fake edit %s/%d: %w", ErrDelivery, h.ChatID, h.MessageID, err)
	}
	f.edits = append(f.edits, EditedMessage{Handle: h, Text: text})
	return nil
}

// Acknowledge records the callback id.
func (f *Fake) Acknowledge(_ context.Context, callbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, callbackID)
	return nil
}

// Sent returns a copy of all sent messages in send order.
func (f *Fake) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

// SentTo returns the messages sent to dest.
func (f *Fake) SentTo(dest string) []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SentMessage
	for _, m := range f.sent {
		if m.Handle.ChatID == dest {
			out = append(out, m)
		}
	}
	return out
}

// Edits returns a copy of all recorded edits.
func (f *Fake) Edits() []EditedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EditedMessage, len(f.edits))
	copy(out, f.edits)
	return out
}

// Acks returns the acknowledged callback ids.
func (f *Fake) Acks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.acks))
	copy(out, f.acks)
	return out
}

// Reset clears recorded traffic but keeps configured errors.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.edits = nil
	f.acks = nil
}
