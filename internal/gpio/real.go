//go:build linux

package gpio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealRelay drives the gate relay on an output line.
type RealRelay struct {
	mu   sync.Mutex
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealRelay requests pin on chip as an output, initially off.
func NewRealRelay(chipName string, pin int) (*RealRelay, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("gate-bell"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pin, err)
	}

	return &RealRelay{chip: chip, line: line}, nil
}

// Pulse sets the line high for d then low again.
// The line is always driven low before returning, even if raising it failed.
func (r *RealRelay) Pulse(d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.line.SetValue(1); err != nil {
		_ = r.line.SetValue(0)
		return fmt.Errorf("relay on: %w", err)
	}
	time.Sleep(d)
	if err := r.line.SetValue(0); err != nil {
		return fmt.Errorf("relay off: %w", err)
	}
	return nil
}

// Close returns the relay pin to input with pull-down (Pi boot default) and
// releases the chip.
func (r *RealRelay) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealBell watches the doorbell input for falling edges.
// The button pulls the line to ground, so the line is biased with pull-up.
type RealBell struct {
	chip    *gpiocdev.Chip
	line    *gpiocdev.Line
	presses chan time.Time
	logger  *slog.Logger
}

// NewRealBell requests pin on chip as an edge-watched input. debounce is
// applied by the kernel; zero disables it.
func NewRealBell(chipName string, pin int, debounce time.Duration, logger *slog.Logger) (*RealBell, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &RealBell{
		presses: make(chan time.Time, pressBuffer),
		logger:  logger,
	}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("gate-bell"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(b.handle),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request bell pin %d: %w", pin, err)
	}

	b.chip = chip
	b.line = line
	return b, nil
}

func (b *RealBell) handle(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	select {
	case b.presses <- time.Now():
	default:
		b.logger.Debug("bell press dropped, queue full", "seqno", evt.Seqno)
	}
}

// Presses returns the press channel.
func (b *RealBell) Presses() <-chan time.Time {
	return b.presses
}

// Close stops watching the line and releases the chip.
func (b *RealBell) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bell pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
