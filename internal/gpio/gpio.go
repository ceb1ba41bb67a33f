// Package gpio provides the gate relay and doorbell input with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Relay drives the gate-opening relay.
type Relay interface {
	// Pulse turns the relay on, holds it for d, then turns it off.
	// It blocks for the whole pulse.
	Pulse(d time.Duration) error

	// Close releases GPIO resources.
	Close() error
}

// Bell delivers doorbell presses.
type Bell interface {
	// Presses returns a channel that receives the time of each press.
	Presses() <-chan time.Time

	// Close releases GPIO resources. The Presses channel is not closed.
	Close() error
}

// Pin defaults (BCM numbering)
const (
	DefaultPinRing = 2
	DefaultPinOpen = 4
)

// pressBuffer bounds how many undelivered presses are queued; extra presses
// in a burst are dropped.
const pressBuffer = 16
