//go:build !linux

package gpio

import (
	"errors"
	"log/slog"
	"time"
)

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

// NewRealRelay returns an error on non-Linux platforms.
func NewRealRelay(chipName string, pin int) (*RealRelay, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Pulse is not implemented on non-Linux platforms.
func (r *RealRelay) Pulse(d time.Duration) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealRelay) Close() error {
	return nil
}

// RealBell is not available on non-Linux platforms.
type RealBell struct{}

// NewRealBell returns an error on non-Linux platforms.
func NewRealBell(chipName string, pin int, debounce time.Duration, logger *slog.Logger) (*RealBell, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Presses returns nil on non-Linux platforms; receiving from it blocks forever.
func (b *RealBell) Presses() <-chan time.Time {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (b *RealBell) Close() error {
	return nil
}
