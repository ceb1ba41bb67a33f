package doorbell

import (
	"sync"

	"github.com/sweeney/gate-bell/internal/logic"
)

// flights holds one lock per event class. A ring in flight never delays an
// open and vice versa.
type flights struct {
	ring sync.Mutex
	open sync.Mutex
}

// acquire blocks until class is free and returns the release func.
//
//	defer s.flights.acquire(logic.ClassRing)()
func (f *flights) acquire(class logic.EventClass) func() {
	m := &f.ring
	if class == logic.ClassOpen {
		m = &f.open
	}
	m.Lock()
	return m.Unlock
}
