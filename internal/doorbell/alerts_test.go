package doorbell

import (
	"errors"
	"testing"

	"github.com/sweeney/gate-bell/internal/chat"
)

func TestAlertsInsertionOrder(t *testing.T) {
	a := NewAlerts()
	a.Add(Alert{Destination: "1", Message: chat.Handle{ChatID: "1", MessageID: 1}})
	a.Add(
		Alert{Destination: "2", Message: chat.Handle{ChatID: "2", MessageID: 2}},
		Alert{Destination: "3", Message: chat.Handle{ChatID: "3", MessageID: 3}},
	)

	snap := a.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(snap))
	}
	for i, want := range []string{"1", "2", "3"} {
		if snap[i].Destination != want {
			t.Errorf("alert %d: got %s, want %s", i, snap[i].Destination, want)
		}
	}
}

func TestResolveOneIsIdempotent(t *testing.T) {
	a := NewAlerts()
	h := chat.Handle{ChatID: "1", MessageID: 7}
	a.Add(Alert{Destination: "1", Message: h}, Alert{Destination: "2", Message: chat.Handle{ChatID: "2", MessageID: 8}})

	if !a.ResolveOne(h) {
		t.Fatal("first ResolveOne should remove the alert")
	}
	if a.ResolveOne(h) {
		t.Error("second ResolveOne should be a no-op")
	}
	if a.Len() != 1 {
		t.Errorf("Len: got %d, want 1", a.Len())
	}
}

func TestResolveOneUnknownHandle(t *testing.T) {
	a := NewAlerts()
	if a.ResolveOne(chat.Handle{ChatID: "x", MessageID: 1}) {
		t.Error("ResolveOne on empty tracker should report false")
	}
}

func TestResolveAllEmptyIsNoop(t *testing.T) {
	a := NewAlerts()
	f := chat.NewFake()

	resolved, err := a.ResolveAll(bg, f, OpenedNotice)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(resolved) != 0 {
		t.Errorf("resolved: got %d, want 0", len(resolved))
	}
	if len(f.Edits()) != 0 {
		t.Errorf("expected no edits, got %d", len(f.Edits()))
	}
}

func TestResolveAllClearsDespiteEditFailures(t *testing.T) {
	a := NewAlerts()
	f := chat.NewFake()
	h1 := chat.Handle{ChatID: "1", MessageID: 1}
	h2 := chat.Handle{ChatID: "2", MessageID: 2}
	a.Add(Alert{Destination: "1", Message: h1}, Alert{Destination: "2", Message: h2})
	f.EditErrors[h1] = errors.New("message is not modified")

	resolved, err := a.ResolveAll(bg, f, OpenedNotice)
	if !errors.Is(err, chat.ErrDelivery) {
		t.Errorf("expected joined ErrDelivery, got %v", err)
	}
	if len(resolved) != 2 {
		t.Errorf("resolved: got %d, want 2", len(resolved))
	}
	if a.Len() != 0 {
		t.Errorf("tracker should be empty, got %d", a.Len())
	}

	edits := f.Edits()
	if len(edits) != 1 || edits[0].Handle != h2 || edits[0].Text != OpenedNotice {
		t.Errorf("edits: got %+v", edits)
	}
}
