// Package session keeps the last known conversational state of each chat.
package session

import "sync"

// State is where a chat stands with respect to the doorbell.
type State string

const (
	Idle       State = "idle"
	Registered State = "registered"
	Alerted    State = "alerted"
	Opened     State = "opened"
	Ignored    State = "ignored"
)

// Machine maps chat ids to their last known state. The zero value is not
// usable; call New.
type Machine struct {
	mu     sync.Mutex
	states map[string]State
}

// New creates an empty Machine.
func New() *Machine {
	return &Machine{states: make(map[string]State)}
}

// Transition records s as the state of id and returns the previous one.
func (m *Machine) Transition(id string, s State) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.states[id]
	if !ok {
		prev = Idle
	}
	m.states[id] = s
	return prev
}

// Last returns the last known state of id, Idle if none.
func (m *Machine) Last(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[id]; ok {
		return s
	}
	return Idle
}

// Forget drops id.
func (m *Machine) Forget(id string) {
	m.mu.Lock()
	delete(m.states, id)
	m.mu.Unlock()
}

// Hint is the reply to unclear input given the last known state.
func Hint(s State) string {
	switch s {
	case Alerted:
		return "Someone rang. Tap Apri to open the gate, or send /open_gate."
	case Opened:
		return "The gate was just opened. Nothing else to do."
	case Ignored:
		return "You ignored the last ring. Send /open_gate if you changed your mind."
	case Registered:
		return "Your chat is waiting for a moderator to enable it."
	default:
		return "Nothing going on. Commands: /open_gate, /pingall, /status, /addchat, /removechat."
	}
}
