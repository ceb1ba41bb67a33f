package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeRelayRecordsPulses(t *testing.T) {
	r := NewFakeRelay()

	if err := r.Pulse(300 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Pulse(100 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := r.Pulses()
	if len(got) != 2 {
		t.Fatalf("expected 2 pulses, got %d", len(got))
	}
	if got[0] != 300*time.Millisecond {
		t.Errorf("pulse 0: got %v, want 300ms", got[0])
	}
	if r.Count() != 2 {
		t.Errorf("Count: got %d, want 2", r.Count())
	}
}

func TestFakeRelayError(t *testing.T) {
	r := NewFakeRelay()
	r.PulseError = errors.New("simulated fault")

	err := r.Pulse(time.Millisecond)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if r.Count() != 0 {
		t.Errorf("failed pulse should not be recorded, got %d", r.Count())
	}
}

func TestFakeRelaySleeps(t *testing.T) {
	r := NewFakeRelay()
	r.Sleep = true

	start := time.Now()
	r.Pulse(20 * time.Millisecond)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Pulse returned after %v, want >= 20ms", elapsed)
	}
}

func TestFakeRelayClose(t *testing.T) {
	r := NewFakeRelay()
	if r.Closed() {
		t.Error("should not be closed initially")
	}
	if err := r.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !r.Closed() {
		t.Error("should be closed after Close()")
	}
}

func TestFakeBellPress(t *testing.T) {
	b := NewFakeBell()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !b.Press(at) {
		t.Fatal("press should be queued")
	}

	select {
	case got := <-b.Presses():
		if !got.Equal(at) {
			t.Errorf("press time: got %v, want %v", got, at)
		}
	default:
		t.Fatal("expected a queued press")
	}
}

func TestFakeBellDropsWhenFull(t *testing.T) {
	b := NewFakeBell()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < pressBuffer; i++ {
		if !b.Press(at) {
			t.Fatalf("press %d should be queued", i)
		}
	}
	if b.Press(at) {
		t.Error("press beyond the buffer should be dropped")
	}
}
