package doorbell

import (
	"context"
	"errors"
	"sync"

	"github.com/sweeney/gate-bell/internal/chat"
)

// Alert is a ring notification still waiting for someone to act on it.
type Alert struct {
	Destination string
	Message     chat.Handle
}

// Alerts is the set of unresolved ring notifications in send order.
// Safe for concurrent use.
type Alerts struct {
	mu    sync.Mutex
	items []Alert
}

// NewAlerts creates an empty tracker.
func NewAlerts() *Alerts {
	return &Alerts{}
}

// Add appends alerts.
func (a *Alerts) Add(alerts ...Alert) {
	if len(alerts) == 0 {
		return
	}
	a.mu.Lock()
	a.items = append(a.items, alerts...)
	a.mu.Unlock()
}

// Len returns the number of pending alerts.
func (a *Alerts) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Snapshot returns a copy of the pending alerts in insertion order.
func (a *Alerts) Snapshot() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Alert, len(a.items))
	copy(out, a.items)
	return out
}

// ResolveOne removes the alert for message h. It reports false when no such
// alert is pending, which makes duplicate button events harmless.
func (a *Alerts) ResolveOne(h chat.Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, it := range a.items {
		if it.Message == h {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return true
		}
	}
	return false
}

// ResolveAll empties the tracker and edits every drained message to text.
// The tracker is cleared even when edits fail; failures are joined into the
// returned error. Alerts added while the edits run stay pending.
// The drained alerts are returned.
func (a *Alerts) ResolveAll(ctx context.Context, ed chat.Editor, text string) ([]Alert, error) {
	a.mu.Lock()
	drained := a.items
	a.items = nil
	a.mu.Unlock()

	var errs []error
	for _, it := range drained {
		if err := ed.Edit(ctx, it.Message, text); err != nil {
			errs = append(errs, err)
		}
	}
	return drained, errors.Join(errs...)
}
