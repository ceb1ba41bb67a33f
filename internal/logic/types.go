// Package logic contains pure business logic for the doorbell relay.
// This package has NO external dependencies (no GPIO, network, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// EventClass identifies one of the two independently debounced pathways.
type EventClass string

const (
	ClassRing EventClass = "ring"
	ClassOpen EventClass = "open"
)

// GateState is the lazily evaluated state of the gate actuator.
type GateState string

const (
	GateIdle           GateState = "IDLE"
	GateRecentlyOpened GateState = "RECENTLY_OPENED"
)

// EventType represents something the relay did (or deliberately did not do).
type EventType string

const (
	EventRing           EventType = "RING"
	EventRingSuppressed EventType = "RING_SUPPRESSED"
	EventOpen           EventType = "OPEN"
	EventOpenSuppressed EventType = "OPEN_SUPPRESSED"
	EventIgnored        EventType = "IGNORED"
	EventUnauthorized   EventType = "UNAUTHORIZED"
)

// Event is emitted to observers (MQTT, status tracker) after each decision.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// Origin is the destination id that caused the event; empty for
	// hardware rings.
	Origin string
	// Delivered is the number of destinations reached by a ring fan-out.
	Delivered int
	// Pending is the number of unresolved alerts after the event.
	Pending int
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Rings           int
	RingsSuppressed int
	Opens           int
	OpensSuppressed int
	Ignored         int
	Unauthorized    int
}

// Count increments the counter matching e.Type.
func (c *EventCounts) Count(e Event) {
	switch e.Type {
	case EventRing:
		c.Rings++
	case EventRingSuppressed:
		c.RingsSuppressed++
	case EventOpen:
		c.Opens++
	case EventOpenSuppressed:
		c.OpensSuppressed++
	case EventIgnored:
		c.Ignored++
	case EventUnauthorized:
		c.Unauthorized++
	}
}
