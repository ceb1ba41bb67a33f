package doorbell

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/gate-bell/internal/chat"
	"github.com/sweeney/gate-bell/internal/logic"
	"github.com/sweeney/gate-bell/internal/registry"
	"github.com/sweeney/gate-bell/internal/session"
)

// RingResult describes what a Ring call did.
type RingResult struct {
	// Suppressed is true when the ring fell inside the quiet interval.
	Suppressed bool
	Sent       int
	Failed     int
}

// Ring fans text out to every enabled chat. An empty text picks a tagged
// ring template. Rings closer together than the ring quiet interval are
// suppressed; concurrent callers queue on the ring lock and all but the first
// see the fresh timestamp.
func (s *Service) Ring(ctx context.Context, text string) RingResult {
	defer s.flights.acquire(logic.ClassRing)()

	now := s.now()
	if !s.guard.TryAcquire(logic.ClassRing, now, s.cfg.RingQuiet) {
		s.logger.Info("ring suppressed, too little time since last notification", "quiet", s.cfg.RingQuiet)
		s.emit(logic.EventRingSuppressed, now, "", 0)
		return RingResult{Suppressed: true}
	}

	if s.cfg.ReloadOnRing {
		// Someone may have enabled a chat without sending /reload.
		if err := s.registry.Reload(); err != nil {
			s.logger.Warn("registry reload failed, using previous snapshot", "error", err)
		}
	}
	dests := s.registry.Enabled()

	if text == "" {
		text = s.ringText()
	}

	s.logger.Info("sending ring notification", "destinations", len(dests))
	alerts := s.fanOut(ctx, text, dests)
	s.alerts.Add(alerts...)
	for _, a := range alerts {
		s.sessions.Transition(a.Destination, session.Alerted)
	}

	s.emit(logic.EventRing, now, "", len(alerts))
	return RingResult{Sent: len(alerts), Failed: len(dests) - len(alerts)}
}

// fanOut sends text with the open/ignore keyboard to every destination.
// Failed sends are logged and skipped. The returned alerts follow dests order.
func (s *Service) fanOut(ctx context.Context, text string, dests []registry.Destination) []Alert {
	handles := make([]chat.Handle, len(dests))
	delivered := make([]bool, len(dests))

	var g errgroup.Group
	g.SetLimit(s.cfg.SendConcurrency)
	for i, d := range dests {
		g.Go(func() error {
			h, err := s.transport.Send(ctx, d.ID, text, chat.SendOptions{Buttons: true})
			if err != nil {
				s.logger.Warn("ring delivery failed", "chat", d.ID, "name", d.Name, "error", err)
				return nil
			}
			s.logger.Debug("alerted chat", "chat", d.ID, "name", d.Name)
			handles[i] = h
			delivered[i] = true
			return nil
		})
	}
	_ = g.Wait()

	alerts := make([]Alert, 0, len(dests))
	for i, d := range dests {
		if delivered[i] {
			alerts = append(alerts, Alert{Destination: d.ID, Message: handles[i]})
		}
	}
	return alerts
}

// Announce sends text to every enabled chat without buttons, debouncing or
// alert tracking. Used for the startup greeting.
func (s *Service) Announce(ctx context.Context, text string) int {
	sent := 0
	for _, d := range s.registry.Enabled() {
		if _, err := s.transport.Send(ctx, d.ID, text, chat.SendOptions{Silent: true}); err != nil {
			s.logger.Warn("announcement failed", "chat", d.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}
