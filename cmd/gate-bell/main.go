// Command gate-bell relays doorbell presses to Telegram chats and opens the
// gate when a chat asks for it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/gate-bell/internal/chat"
	"github.com/sweeney/gate-bell/internal/config"
	"github.com/sweeney/gate-bell/internal/doorbell"
	"github.com/sweeney/gate-bell/internal/gpio"
	"github.com/sweeney/gate-bell/internal/logging"
	"github.com/sweeney/gate-bell/internal/logic"
	"github.com/sweeney/gate-bell/internal/mqtt"
	"github.com/sweeney/gate-bell/internal/registry"
	"github.com/sweeney/gate-bell/internal/status"
	"github.com/sweeney/gate-bell/internal/web"
)

// Telegram polling is restarted this many times before the daemon gives up
// and lets its supervisor restart it.
const (
	pollAttempts   = 50
	pollRetryDelay = time.Second
)

func main() {
	configPath := flag.String("config", "gate-bell.toml", "TOML configuration file")
	mock := flag.Bool("mock", false, "Use fake GPIO (no hardware)")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *mock {
		cfg.GPIO.Mock = true
	}

	if *printConfig {
		out, err := config.Encode(cfg)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
	closeLog()
}

func run(cfg config.Config, logger *slog.Logger) error {
	reg, err := registry.Open(cfg.Registry.Path, cfg.Registry.Autosave)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	logger.Info("registry loaded", "path", reg.Path(), "chats", len(reg.All()), "enabled", len(reg.Enabled()))

	relay, bell, err := openGPIO(cfg.GPIO, logger)
	if err != nil {
		return err
	}
	defer relay.Close()
	defer bell.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		RingQuietMs: cfg.Doorbell.RingQuiet.Std().Milliseconds(),
		OpenQuietMs: cfg.Doorbell.OpenQuiet.Std().Milliseconds(),
		PulseMs:     cfg.Doorbell.Pulse.Std().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		Mock:        cfg.GPIO.Mock,
	})
	tracker.SetDestinations(len(reg.Enabled()))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			ClientID:           cfg.MQTT.ClientID,
			BufferSize:         cfg.MQTT.Buffer,
			Logger:             logger,
			OnConnectionChange: tracker.SetMQTTConnected,
		})
		if err != nil {
			logger.Warn("mqtt disabled", "error", err)
		} else {
			defer p.Close()
			publisher, mqttStatus = p, p
		}
	}

	inbound := make(chan chat.Event, 64)
	sink := func(ctx context.Context, ev chat.Event) {
		select {
		case inbound <- ev:
		case <-ctx.Done():
		}
	}
	tg, err := chat.NewTelegram(chat.TelegramConfig{
		Token:   cfg.Telegram.Token,
		APIBase: cfg.Telegram.APIBase,
	}, sink, logger.With("component", "telegram"))
	if err != nil {
		return fmt.Errorf("init telegram: %w", err)
	}

	svc, err := doorbell.New(doorbellConfig(cfg), doorbell.Deps{
		Transport: tg,
		Registry:  reg,
		Relay:     relay,
		Observers: observers(tracker, reg, publisher, logger),
		Logger:    logger.With("component", "doorbell"),
	})
	if err != nil {
		return fmt.Errorf("init doorbell: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- pollWithRestart(ctx, tg.Run, pollAttempts, pollRetryDelay, logger)
	}()

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			logger.Warn("failed to publish startup event", "error", err)
		}
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	if cfg.Doorbell.AnnounceStartup {
		n := svc.Announce(ctx, doorbell.StartupText)
		logger.Info("startup announced", "chats", n)
	}

	logger.Info("started",
		"ring_quiet", cfg.Doorbell.RingQuiet.Std(),
		"open_quiet", cfg.Doorbell.OpenQuiet.Std(),
		"pulse", cfg.Doorbell.Pulse.Std(),
		"mock", cfg.GPIO.Mock,
		"mqtt", cfg.MQTT.Broker != "")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	return runLoop(ctx, loop{
		svc:        svc,
		presses:    bell.Presses(),
		inbound:    inbound,
		sig:        sigCh,
		transport:  pollErr,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        time.Now,
		logger:     logger,
	})
}

func openGPIO(cfg config.GPIOConfig, logger *slog.Logger) (gpio.Relay, gpio.Bell, error) {
	if cfg.Mock {
		relay := gpio.NewFakeRelay()
		relay.Sleep = true
		relay.Logger = logger
		logger.Info("gpio mock mode, send SIGUSR1 to ring")
		return relay, gpio.NewFakeBell(), nil
	}

	relay, err := gpio.NewRealRelay(cfg.Chip, cfg.PinOpen)
	if err != nil {
		return nil, nil, fmt.Errorf("init gpio relay: %w", err)
	}
	bell, err := gpio.NewRealBell(cfg.Chip, cfg.PinRing, cfg.BellDebounce.Std(), logger)
	if err != nil {
		relay.Close()
		return nil, nil, fmt.Errorf("init gpio bell: %w", err)
	}
	return relay, bell, nil
}

func doorbellConfig(cfg config.Config) doorbell.Config {
	dc := doorbell.DefaultConfig()
	dc.RingQuiet = cfg.Doorbell.RingQuiet.Std()
	dc.OpenQuiet = cfg.Doorbell.OpenQuiet.Std()
	dc.PulseDuration = cfg.Doorbell.Pulse.Std()
	dc.RingTag = cfg.Doorbell.RingTag
	dc.OpenTag = cfg.Doorbell.OpenTag
	dc.RingTemplates = cfg.Doorbell.RingTemplates
	dc.OpenTemplates = cfg.Doorbell.OpenTemplates
	dc.AdminChat = cfg.Telegram.AdminChat
	dc.SendConcurrency = cfg.Doorbell.SendConcurrency
	return dc
}

// observers feeds every doorbell decision to the status page and, when
// configured, to MQTT.
func observers(tracker *status.Tracker, reg *registry.Store, publisher mqtt.Publisher, logger *slog.Logger) []doorbell.Observer {
	obs := []doorbell.Observer{
		tracker,
		doorbell.ObserverFunc(func(logic.Event) {
			tracker.SetDestinations(len(reg.Enabled()))
		}),
	}
	if publisher != nil {
		obs = append(obs, doorbell.ObserverFunc(func(e logic.Event) {
			if err := publisher.Publish(e); err != nil {
				// Don't crash on publish failure
				logger.Warn("publish error", "event", e.Type, "error", err)
			}
		}))
	}
	return obs
}

// pollWithRestart runs poll until ctx is done, restarting it after delay when
// it fails. It gives up after attempts consecutive failures.
func pollWithRestart(ctx context.Context, poll func(context.Context) error, attempts int, delay time.Duration, logger *slog.Logger) error {
	for i := 1; ; i++ {
		err := poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if i >= attempts {
			return fmt.Errorf("polling failed %d times: %w", i, err)
		}
		logger.Warn("polling stopped, restarting", "attempt", i, "max", attempts, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// loop holds everything runLoop selects on.
type loop struct {
	svc        *doorbell.Service
	presses    <-chan time.Time
	inbound    <-chan chat.Event
	sig        <-chan os.Signal
	transport  <-chan error
	publisher  mqtt.Publisher // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	now        func() time.Time
	logger     *slog.Logger
}

// runLoop dispatches presses, chat events and signals until shutdown. Each
// ring and each chat event runs on its own goroutine; the doorbell Service
// serializes what needs serializing. It returns nil on SIGINT/SIGTERM and an
// error on an actuator fault or when the transport gives up.
func runLoop(ctx context.Context, l loop) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	fatal := make(chan error, 1)

	ring := func(source string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := l.svc.Ring(ctx, "")
			l.logger.Info("ring handled", "source", source, "suppressed", res.Suppressed, "sent", res.Sent, "failed", res.Failed)
		}()
	}

	for {
		select {
		case <-l.presses:
			ring("button")

		case ev := <-l.inbound:
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := l.svc.Handle(ctx, ev)
				if err == nil {
					return
				}
				l.logger.Error("handler failed", "event", ev.Type, "error", err)
				l.svc.ReportError(ctx, ev, err)
				if errors.Is(err, doorbell.ErrActuator) {
					select {
					case fatal <- err:
					default:
					}
				}
			}()

		case s := <-l.sig:
			if s == syscall.SIGUSR1 {
				ring("signal")
				continue
			}
			name := signalName(s)
			l.logger.Info("shutting down", "signal", name)
			l.shutdown(name)
			return nil

		case err := <-fatal:
			l.logger.Error("gate actuator failed, exiting", "error", err)
			l.shutdown("ACTUATOR_FAULT")
			return err

		case err := <-l.transport:
			if err == nil {
				// Polling ended with the context.
				l.shutdown("CANCELLED")
				return nil
			}
			l.logger.Error("chat transport gave up", "error", err)
			l.shutdown("TRANSPORT_LOST")
			return err

		case <-ctx.Done():
			return nil
		}
	}
}

func (l loop) shutdown(reason string) {
	if l.publisher == nil {
		return
	}
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		snap := l.tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Warn("failed to publish shutdown event", "error", err)
	} else {
		l.logger.Info("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
