package doorbell

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/gate-bell/internal/chat"
	"github.com/sweeney/gate-bell/internal/gpio"
	"github.com/sweeney/gate-bell/internal/logic"
	"github.com/sweeney/gate-bell/internal/registry"
)

const adminChat = "admin"

// testClock is a settable clock shared by concurrent handlers.
type testClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
}

func newTestClock() *testClock {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &testClock{start: start, now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// At moves the clock to start+d.
func (c *testClock) At(d time.Duration) {
	c.mu.Lock()
	c.now = c.start.Add(d)
	c.mu.Unlock()
}

// firstSource always picks the first template.
type firstSource struct{}

func (firstSource) IntN(int) int { return 0 }

// recorder collects observed events.
type recorder struct {
	mu     sync.Mutex
	events []logic.Event
}

func (r *recorder) Observe(e logic.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []logic.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]logic.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	svc       *Service
	transport *chat.Fake
	relay     *gpio.FakeRelay
	clock     *testClock
	reg       *registry.Store
	rec       *recorder
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, cfg Config, dests ...registry.Destination) *harness {
	t.Helper()
	h := &harness{
		transport: chat.NewFake(),
		relay:     gpio.NewFakeRelay(),
		clock:     newTestClock(),
		reg:       registry.NewMemory(dests...),
		rec:       &recorder{},
	}
	h.svc = newService(t, cfg, h.transport, h.reg, h)
	return h
}

func newService(t *testing.T, cfg Config, tr chat.Transport, reg Registry, h *harness) *Service {
	t.Helper()
	if cfg.AdminChat == "" {
		cfg.AdminChat = adminChat
	}
	svc, err := New(cfg, Deps{
		Transport: tr,
		Registry:  reg,
		Relay:     h.relay,
		Observers: []Observer{h.rec},
		Now:       h.clock.Now,
		Rand:      firstSource{},
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// alertsSent returns the messages that carried the open/ignore keyboard.
func (h *harness) alertsSent() []chat.SentMessage {
	var out []chat.SentMessage
	for _, m := range h.transport.Sent() {
		if m.Options.Buttons {
			out = append(out, m)
		}
	}
	return out
}

func enabled(id, name string) registry.Destination {
	return registry.Destination{ID: id, Name: name, Enabled: true}
}

func disabled(id, name string) registry.Destination {
	return registry.Destination{ID: id, Name: name}
}

func origin(id string) chat.Origin {
	return chat.Origin{ID: id, Name: "chat-" + id}
}

var bg = context.Background()
