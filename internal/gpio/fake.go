package gpio

import (
	"log/slog"
	"sync"
	"time"
)

// FakeRelay is a test double (and the mock-mode relay) that records pulses
// instead of driving hardware. Safe for concurrent use.
type FakeRelay struct {
	mu     sync.Mutex
	pulses []time.Duration
	closed bool

	// PulseError, if set, will be returned by Pulse.
	PulseError error

	// Sleep makes Pulse block for the requested duration, like hardware.
	Sleep bool

	// Logger, if set, logs each pulse (mock mode).
	Logger *slog.Logger
}

// NewFakeRelay creates a FakeRelay that returns immediately.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Pulse records d.
func (f *FakeRelay) Pulse(d time.Duration) error {
	if f.Logger != nil {
		f.Logger.Info("mock gate: relay on", "hold", d)
	}
	if f.Sleep {
		time.Sleep(d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PulseError != nil {
		return f.PulseError
	}
	f.pulses = append(f.pulses, d)
	if f.Logger != nil {
		f.Logger.Info("mock gate: relay off")
	}
	return nil
}

// Pulses returns a copy of the recorded pulse durations.
func (f *FakeRelay) Pulses() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.pulses))
	copy(out, f.pulses)
	return out
}

// Count returns the number of successful pulses.
func (f *FakeRelay) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pulses)
}

// Closed reports whether Close was called.
func (f *FakeRelay) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close marks the relay as closed.
func (f *FakeRelay) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// FakeBell is a doorbell driven by Press calls.
type FakeBell struct {
	presses chan time.Time
	closed  bool
}

// NewFakeBell creates a FakeBell with the same queue bound as the real one.
func NewFakeBell() *FakeBell {
	return &FakeBell{presses: make(chan time.Time, pressBuffer)}
}

// Press queues a press at t. It reports false when the queue is full and the
// press was dropped.
func (f *FakeBell) Press(t time.Time) bool {
	select {
	case f.presses <- t:
		return true
	default:
		return false
	}
}

// Presses returns the press channel.
func (f *FakeBell) Presses() <-chan time.Time {
	return f.presses
}

// Close marks the bell as closed.
func (f *FakeBell) Close() error {
	f.closed = true
	return nil
}
