// Package status provides a thread-safe status tracker for the gate-bell daemon.
// It is read by the HTTP status page and the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gate-bell/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	RingQuietMs int64
	OpenQuietMs int64
	PulseMs     int64
	Broker      string
	HTTPAddr    string
	Mock        bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Counts        logic.EventCounts
	LastRing      time.Time // zero if never
	LastOpen      time.Time // zero if never
	Gate          logic.GateState
	Pending       int
	Destinations  int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Gate:      logic.GateIdle,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots. For tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Observe folds a doorbell event into the counters.
func (t *Tracker) Observe(e logic.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Counts.Count(e)
	t.snap.Pending = e.Pending
	switch e.Type {
	case logic.EventRing:
		t.snap.LastRing = e.Timestamp
	case logic.EventOpen:
		t.snap.LastOpen = e.Timestamp
	}
}

// SetDestinations sets the number of enabled destinations.
func (t *Tracker) SetDestinations(n int) {
	t.mu.Lock()
	t.snap.Destinations = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// Now and Gate are evaluated at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()

	s.Now = now()
	quiet := time.Duration(s.Config.OpenQuietMs) * time.Millisecond
	s.Gate = logic.Gate(s.LastOpen, !s.LastOpen.IsZero(), s.Now, quiet)
	return s
}
