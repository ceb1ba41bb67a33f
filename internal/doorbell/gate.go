package doorbell

import (
	"context"
	"fmt"

	"github.com/sweeney/gate-bell/internal/chat"
	"github.com/sweeney/gate-bell/internal/logic"
	"github.com/sweeney/gate-bell/internal/session"
)

// OpenResult describes what an Open call did.
type OpenResult struct {
	// Opened is false when the gate was opened within the open quiet
	// interval and the relay was left alone.
	Opened bool
	// Resolved is the number of pending alerts cleared.
	Resolved int
}

// Open pulses the gate relay on behalf of origin, resolves every pending
// alert and replies to origin. Authorization is the caller's job.
//
// A second request inside the open quiet interval does not touch the relay;
// origin is told the gate should still be open. Only a relay failure
// returns an error, wrapping ErrActuator.
func (s *Service) Open(ctx context.Context, origin chat.Origin) (OpenResult, error) {
	defer s.flights.acquire(logic.ClassOpen)()

	now := s.now()
	if !s.guard.TryAcquire(logic.ClassOpen, now, s.cfg.OpenQuiet) {
		s.logger.Info("open ignored, gate opened recently", "from", origin.ID, "quiet", s.cfg.OpenQuiet)
		s.reply(ctx, origin.ID, StillOpenText)
		s.emit(logic.EventOpenSuppressed, now, origin.ID, 0)
		return OpenResult{}, nil
	}

	s.logger.Info("opening gate", "from", origin.ID, "name", origin.Name)
	if err := s.relay.Pulse(s.cfg.PulseDuration); err != nil {
		return OpenResult{}, fmt.Errorf("%w: %w", ErrActuator, err)
	}

	resolved, err := s.alerts.ResolveAll(ctx, s.transport, OpenedNotice)
	if err != nil {
		s.logger.Warn("some alerts could not be updated", "error", err)
	}
	for _, a := range resolved {
		if a.Destination != origin.ID {
			s.sessions.Transition(a.Destination, session.Idle)
		}
	}
	s.sessions.Transition(origin.ID, session.Opened)

	s.reply(ctx, origin.ID, s.openText())
	s.emit(logic.EventOpen, now, origin.ID, 0)
	return OpenResult{Opened: true, Resolved: len(resolved)}, nil
}

// reply sends a silent message; failures are logged.
func (s *Service) reply(ctx context.Context, dest, text string) {
	if _, err := s.transport.Send(ctx, dest, text, chat.SendOptions{Silent: true}); err != nil {
		s.logger.Warn("reply failed", "chat", dest, "error", err)
	}
}
