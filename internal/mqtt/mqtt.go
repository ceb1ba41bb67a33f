// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gate-bell/internal/logic"
)

// Topic is the MQTT topic for doorbell events.
const Topic = "home/gate-bell/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/gate-bell/system"

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 100

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a doorbell event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, reconnect).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Bell BellPayload `json:"bell"`
}

// BellPayload contains the doorbell event details.
type BellPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Origin    string `json:"origin,omitempty"`
	Delivered int    `json:"delivered"`
	Pending   int    `json:"pending"`
}

// FormatPayload creates the JSON payload for a doorbell event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Bell: BellPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Origin:    event.Origin,
			Delivered: event.Delivered,
			Pending:   event.Pending,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
