// Package doorbell turns doorbell presses into chat notifications and chat
// replies into gate openings.
//
// Two event classes flow through a Service: ring (button pressed, fan out to
// every enabled chat) and open (a chat asked to open the gate, pulse the
// relay). Each class has its own lock and its own quiet interval, so bursts
// of presses or double-tapped buttons collapse into a single dispatch.
package doorbell

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sweeney/gate-bell/internal/chat"
	"github.com/sweeney/gate-bell/internal/logic"
	"github.com/sweeney/gate-bell/internal/registry"
	"github.com/sweeney/gate-bell/internal/session"
)

// Fixed texts.
const (
	DefaultRingText = "SOMEONE'S AT THE DOOR! IS IT THE COPS? GO CHECK!"
	DefaultOpenText = "WHO LET THE DOGS IN! WHO! WHO! whowho!"
	StartupText     = "Yo! Just woke up. Do you need something?"
	PingText        = "PING!"

	OpenedNotice  = "Gate was opened"
	StillOpenText = "It should still be open... relax"
)

// ErrActuator marks a relay failure. The process cannot recover from it and
// should exit so its supervisor restarts it.
var ErrActuator = errors.New("doorbell: actuator fault")

// Config tunes a Service.
type Config struct {
	RingQuiet     time.Duration
	OpenQuiet     time.Duration
	PulseDuration time.Duration

	RingTag       string
	OpenTag       string
	RingTemplates []string
	OpenTemplates []string

	// AdminChat receives unauthorized-request alerts and registrations.
	AdminChat string

	// ReloadOnRing re-reads the registry before every ring fan-out.
	ReloadOnRing bool

	// SendConcurrency bounds parallel sends during a fan-out.
	SendConcurrency int
}

// DefaultConfig returns the values the gate has always run with.
func DefaultConfig() Config {
	return Config{
		RingQuiet:       10 * time.Second,
		OpenQuiet:       10 * time.Second,
		PulseDuration:   300 * time.Millisecond,
		RingTag:         "[cancello]",
		OpenTag:         "[apro]",
		ReloadOnRing:    true,
		SendConcurrency: 4,
	}
}

// Registry is the destination lookup the Service consumes.
type Registry interface {
	Reload() error
	Enabled() []registry.Destination
	Lookup(id string) (registry.Destination, bool)
	Add(id, name string) (bool, error)
	Remove(id string) (bool, error)
}

// Actuator pulses the gate relay.
type Actuator interface {
	Pulse(d time.Duration) error
}

// Observer receives every decision the Service makes.
type Observer interface {
	Observe(e logic.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e logic.Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e logic.Event) { f(e) }

// Deps are the collaborators of a Service. Transport, Registry and Relay are
// required; the rest default.
type Deps struct {
	Transport chat.Transport
	Registry  Registry
	Relay     Actuator
	Sessions  *session.Machine
	Observers []Observer
	Now       func() time.Time
	Rand      logic.Source
	Logger    *slog.Logger
}

// Service owns the debounce state, the pending alerts and the per-class locks.
// Build one per process with New.
type Service struct {
	cfg       Config
	transport chat.Transport
	registry  Registry
	relay     Actuator
	sessions  *session.Machine
	observers []Observer
	now       func() time.Time
	rand      logic.Source
	logger    *slog.Logger

	guard   *logic.Guard
	alerts  *Alerts
	flights flights
}

// New creates a Service.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Transport == nil {
		return nil, errors.New("doorbell: transport is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("doorbell: registry is required")
	}
	if deps.Relay == nil {
		return nil, errors.New("doorbell: relay is required")
	}
	if cfg.SendConcurrency <= 0 {
		cfg.SendConcurrency = 1
	}

	s := &Service{
		cfg:       cfg,
		transport: deps.Transport,
		registry:  deps.Registry,
		relay:     deps.Relay,
		sessions:  deps.Sessions,
		observers: deps.Observers,
		now:       deps.Now,
		rand:      deps.Rand,
		logger:    deps.Logger,
		guard:     logic.NewGuard(),
		alerts:    NewAlerts(),
	}
	if s.sessions == nil {
		s.sessions = session.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Alerts exposes the pending alert tracker.
func (s *Service) Alerts() *Alerts {
	return s.alerts
}

// Sessions exposes the per-chat state machine.
func (s *Service) Sessions() *session.Machine {
	return s.sessions
}

// GateState evaluates the gate state now.
func (s *Service) GateState() logic.GateState {
	last, opened := s.guard.Last(logic.ClassOpen)
	return logic.Gate(last, opened, s.now(), s.cfg.OpenQuiet)
}

// LastFired returns the last permitted dispatch time of class.
func (s *Service) LastFired(class logic.EventClass) (time.Time, bool) {
	return s.guard.Last(class)
}

func (s *Service) ringText() string {
	return logic.Tagged(s.cfg.RingTag, logic.Pick(s.rand, s.cfg.RingTemplates, DefaultRingText))
}

func (s *Service) openText() string {
	return logic.Tagged(s.cfg.OpenTag, logic.Pick(s.rand, s.cfg.OpenTemplates, DefaultOpenText))
}

func (s *Service) emit(typ logic.EventType, at time.Time, origin string, delivered int) {
	e := logic.Event{
		Timestamp: at,
		Type:      typ,
		Origin:    origin,
		Delivered: delivered,
		Pending:   s.alerts.Len(),
	}
	for _, o := range s.observers {
		o.Observe(e)
	}
}
