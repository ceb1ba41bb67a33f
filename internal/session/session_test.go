package session

import "testing"

func TestLastDefaultsToIdle(t *testing.T) {
	m := New()
	if got := m.Last("1"); got != Idle {
		t.Errorf("got %s, want idle", got)
	}
}

func TestTransitionReturnsPrevious(t *testing.T) {
	m := New()

	if prev := m.Transition("1", Alerted); prev != Idle {
		t.Errorf("first transition prev: got %s, want idle", prev)
	}
	if prev := m.Transition("1", Opened); prev != Alerted {
		t.Errorf("second transition prev: got %s, want alerted", prev)
	}
	if got := m.Last("1"); got != Opened {
		t.Errorf("last: got %s, want opened", got)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := New()
	m.Transition("1", Alerted)
	m.Transition("2", Ignored)

	if m.Last("1") != Alerted || m.Last("2") != Ignored {
		t.Errorf("got %s/%s", m.Last("1"), m.Last("2"))
	}
}

func TestForget(t *testing.T) {
	m := New()
	m.Transition("1", Registered)
	m.Forget("1")
	if got := m.Last("1"); got != Idle {
		t.Errorf("got %s after Forget, want idle", got)
	}
}

func TestHintPerState(t *testing.T) {
	seen := map[string]State{}
	for _, s := range []State{Idle, Registered, Alerted, Opened, Ignored} {
		h := Hint(s)
		if h == "" {
			t.Errorf("empty hint for %s", s)
		}
		if other, dup := seen[h]; dup {
			t.Errorf("states %s and %s share a hint", s, other)
		}
		seen[h] = s
	}
}
