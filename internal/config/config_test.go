package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gate-bell.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// noEnv keeps the process environment out of a test.
var noEnv = map[string]string{}

const minimal = `[telegram]
token = "123:abc"
admin_chat = "-1001"
`

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, minimal), noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Doorbell.RingQuiet.Std() != 10*time.Second {
		t.Fatalf("ring_quiet: got %v", cfg.Doorbell.RingQuiet.Std())
	}
	if cfg.Doorbell.Pulse.Std() != 300*time.Millisecond {
		t.Fatalf("pulse: got %v", cfg.Doorbell.Pulse.Std())
	}
	if cfg.Doorbell.RingTag != "[cancello]" || cfg.Doorbell.OpenTag != "[apro]" {
		t.Fatalf("tags: got %q %q", cfg.Doorbell.RingTag, cfg.Doorbell.OpenTag)
	}
	if cfg.GPIO.PinRing != 2 || cfg.GPIO.PinOpen != 4 {
		t.Fatalf("pins: got %d %d", cfg.GPIO.PinRing, cfg.GPIO.PinOpen)
	}
	if cfg.Registry.Path != "config.json" {
		t.Fatalf("registry path: got %q", cfg.Registry.Path)
	}
	if cfg.MQTT.Broker != "" {
		t.Fatalf("mqtt should be disabled by default, got %q", cfg.MQTT.Broker)
	}
	if !cfg.Log.Console.Enabled || cfg.Log.File.Enabled {
		t.Fatalf("unexpected log sinks %+v", cfg.Log)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, minimal+`
[doorbell]
ring_quiet = "30s"
open_quiet = "5s"
pulse = "1s"
ring_templates = ["ding", "dong"]
announce_startup = true
send_concurrency = 8

[gpio]
mock = true

[mqtt]
broker = "tcp://localhost:1883"
buffer = 10

[log.file]
enabled = true
path = "/tmp/gate-bell.log"
`), noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Doorbell.RingQuiet.Std() != 30*time.Second {
		t.Fatalf("ring_quiet: got %v", cfg.Doorbell.RingQuiet.Std())
	}
	if cfg.Doorbell.OpenQuiet.Std() != 5*time.Second {
		t.Fatalf("open_quiet: got %v", cfg.Doorbell.OpenQuiet.Std())
	}
	if len(cfg.Doorbell.RingTemplates) != 2 {
		t.Fatalf("ring_templates: got %v", cfg.Doorbell.RingTemplates)
	}
	if !cfg.Doorbell.AnnounceStartup || cfg.Doorbell.SendConcurrency != 8 {
		t.Fatalf("doorbell: got %+v", cfg.Doorbell)
	}
	if !cfg.GPIO.Mock {
		t.Fatal("expected gpio.mock")
	}
	if cfg.MQTT.Buffer != 10 || cfg.MQTT.ClientID != "gate-bell" {
		t.Fatalf("mqtt: got %+v", cfg.MQTT)
	}
	if cfg.Log.File.Format != "json" {
		t.Fatalf("file format default: got %q", cfg.Log.File.Format)
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", map[string]string{
		EnvToken:     "999:env",
		EnvAdminChat: "42",
		EnvBroker:    "tcp://10.0.0.2:1883",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "999:env" {
		t.Fatalf("token: got %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminChat != "42" {
		t.Fatalf("admin_chat: got %q", cfg.Telegram.AdminChat)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.2:1883" {
		t.Fatalf("broker: got %q", cfg.MQTT.Broker)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, minimal), map[string]string{EnvToken: "from-env"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token: got %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminChat != "-1001" {
		t.Fatalf("admin_chat should come from the file, got %q", cfg.Telegram.AdminChat)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, minimal+`
[doorbell]
ring_qiet = "30s"
`), noEnv)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "ring_qiet") {
		t.Fatalf("error should name the key, got %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, minimal+`
[doorbell]
pulse = "soon"
`), noEnv)
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), noEnv)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		cfg := Default()
		cfg.Telegram.Token = "t"
		cfg.Telegram.AdminChat = "a"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "telegram.token"},
		{"missing admin", func(c *Config) { c.Telegram.AdminChat = " " }, "telegram.admin_chat"},
		{"missing registry", func(c *Config) { c.Registry.Path = "" }, "registry.path"},
		{"zero pulse", func(c *Config) { c.Doorbell.Pulse = 0 }, "doorbell.pulse"},
		{"negative quiet", func(c *Config) { c.Doorbell.RingQuiet = Duration(-time.Second) }, "doorbell.ring_quiet"},
		{"same pins", func(c *Config) { c.GPIO.PinOpen = c.GPIO.PinRing }, "must differ"},
		{"no sinks", func(c *Config) { c.Log.Console.Enabled = false }, "log.console and log.file"},
		{"bad level", func(c *Config) { c.Log.Console.Level = "loud" }, "log.console.level"},
		{"file without path", func(c *Config) {
			c.Log.File.Enabled = true
			c.Log.File.Path = ""
		}, "log.file.path"},
	}

	if err := Validate(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateMockSkipsPins(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Telegram.Token = "t"
	cfg.Telegram.AdminChat = "a"
	cfg.GPIO.Mock = true
	cfg.GPIO.PinOpen = cfg.GPIO.PinRing
	if err := Validate(cfg); err != nil {
		t.Fatalf("mock config rejected: %v", err)
	}
}

func TestEncodeMasksToken(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Telegram.Token = "123:secret"
	out, err := Encode(cfg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(out), "secret") {
		t.Fatalf("token leaked:\n%s", out)
	}
	if !strings.Contains(string(out), `ring_quiet = '10s'`) && !strings.Contains(string(out), `ring_quiet = "10s"`) {
		t.Fatalf("duration not rendered as text:\n%s", out)
	}
}
