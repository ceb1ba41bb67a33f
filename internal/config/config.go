// Package config loads the gate-bell TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override the file.
const (
	EnvToken     = "GATE_BELL_TOKEN"
	EnvAdminChat = "GATE_BELL_ADMIN_CHAT"
	EnvBroker    = "GATE_BELL_MQTT_BROKER"
)

// envOverrides holds the raw environment values.
type envOverrides struct {
	Token     string `env:"GATE_BELL_TOKEN"`
	AdminChat string `env:"GATE_BELL_ADMIN_CHAT"`
	Broker    string `env:"GATE_BELL_MQTT_BROKER"`
}

// Config holds every daemon setting.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Registry RegistryConfig `toml:"registry"`
	Doorbell DoorbellConfig `toml:"doorbell"`
	GPIO     GPIOConfig     `toml:"gpio"`
	MQTT     MQTTConfig     `toml:"mqtt"`
	HTTP     HTTPConfig     `toml:"http"`
	Log      LogConfig      `toml:"log"`
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token     string `toml:"token"`
	AdminChat string `toml:"admin_chat"`
	APIBase   string `toml:"api_base"`
}

// RegistryConfig points at the destination file.
type RegistryConfig struct {
	Path     string `toml:"path"`
	Autosave bool   `toml:"autosave"`
}

// DoorbellConfig tunes the debounce intervals and message texts.
type DoorbellConfig struct {
	RingQuiet       Duration `toml:"ring_quiet"`
	OpenQuiet       Duration `toml:"open_quiet"`
	Pulse           Duration `toml:"pulse"`
	RingTag         string   `toml:"ring_tag"`
	OpenTag         string   `toml:"open_tag"`
	RingTemplates   []string `toml:"ring_templates"`
	OpenTemplates   []string `toml:"open_templates"`
	AnnounceStartup bool     `toml:"announce_startup"`
	SendConcurrency int      `toml:"send_concurrency"`
}

// GPIOConfig selects the chip and lines.
type GPIOConfig struct {
	Mock         bool     `toml:"mock"`
	Chip         string   `toml:"chip"`
	PinRing      int      `toml:"pin_ring"`
	PinOpen      int      `toml:"pin_open"`
	BellDebounce Duration `toml:"bell_debounce"`
}

// MQTTConfig configures event publishing. An empty broker disables it.
type MQTTConfig struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	Buffer   int    `toml:"buffer"`
}

// HTTPConfig configures the status page.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig contains console/file logging sinks.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// Duration is a time.Duration written as "10s" in TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when a key is absent.
func Default() Config {
	return Config{
		Registry: RegistryConfig{Path: "config.json", Autosave: true},
		Doorbell: DoorbellConfig{
			RingQuiet:       Duration(10 * time.Second),
			OpenQuiet:       Duration(10 * time.Second),
			Pulse:           Duration(300 * time.Millisecond),
			RingTag:         "[cancello]",
			OpenTag:         "[apro]",
			SendConcurrency: 4,
		},
		GPIO: GPIOConfig{
			Chip:         "gpiochip0",
			PinRing:      2,
			PinOpen:      4,
			BellDebounce: Duration(50 * time.Millisecond),
		},
		MQTT: MQTTConfig{ClientID: "gate-bell", Buffer: 100},
		HTTP: HTTPConfig{Addr: ":80"},
		Log: LogConfig{
			Console: LogSinkConfig{Enabled: true, Level: "info", Format: "line"},
			File:    LogSinkConfig{Level: "info", Format: "json", Path: "log.txt"},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields defaults plus environment.
// A nil environ reads the process environment.
func Load(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := decode(body, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %q: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, environ); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(body []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}
	return nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if v := strings.TrimSpace(o.Token); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(o.AdminChat); v != "" {
		cfg.Telegram.AdminChat = v
	}
	if v := strings.TrimSpace(o.Broker); v != "" {
		cfg.MQTT.Broker = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Doorbell.SendConcurrency <= 0 {
		cfg.Doorbell.SendConcurrency = 1
	}
	if strings.TrimSpace(cfg.MQTT.ClientID) == "" {
		cfg.MQTT.ClientID = "gate-bell"
	}
	if cfg.MQTT.Buffer <= 0 {
		cfg.MQTT.Buffer = 100
	}
	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
}

// Validate reports the first invalid setting.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (or set %s)", EnvToken)
	}
	if strings.TrimSpace(cfg.Telegram.AdminChat) == "" {
		return fmt.Errorf("telegram.admin_chat is required (or set %s)", EnvAdminChat)
	}
	if strings.TrimSpace(cfg.Registry.Path) == "" {
		return errors.New("registry.path is required")
	}
	if cfg.Doorbell.RingQuiet < 0 {
		return errors.New("doorbell.ring_quiet must be >=0")
	}
	if cfg.Doorbell.OpenQuiet < 0 {
		return errors.New("doorbell.open_quiet must be >=0")
	}
	if cfg.Doorbell.Pulse <= 0 {
		return errors.New("doorbell.pulse must be >0")
	}
	if !cfg.GPIO.Mock {
		if strings.TrimSpace(cfg.GPIO.Chip) == "" {
			return errors.New("gpio.chip is required")
		}
		if cfg.GPIO.PinRing < 0 || cfg.GPIO.PinOpen < 0 {
			return errors.New("gpio pins must be >=0")
		}
		if cfg.GPIO.PinRing == cfg.GPIO.PinOpen {
			return fmt.Errorf("gpio.pin_ring and gpio.pin_open must differ (both %d)", cfg.GPIO.PinRing)
		}
	}
	if cfg.GPIO.BellDebounce < 0 {
		return errors.New("gpio.bell_debounce must be >=0")
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		return errors.New("at least one of log.console and log.file must be enabled")
	}
	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	return validateLogSink("log.file", cfg.Log.File, true)
}

func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}
	return nil
}

// Encode renders cfg as TOML with the bot token masked.
func Encode(cfg Config) ([]byte, error) {
	if cfg.Telegram.Token != "" {
		cfg.Telegram.Token = "***"
	}
	return toml.Marshal(cfg)
}
