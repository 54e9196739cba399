package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "3s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Target describes a single monitored host. The target list is the engine's
// registry: loaded once at startup, read-only afterwards.
type Target struct {
	Name    string   `yaml:"name"`
	Host    string   `yaml:"host"`
	Probe   string   `yaml:"probe"`
	Port    int      `yaml:"port"`
	Timeout Duration `yaml:"timeout"`

	// HTTP probe only.
	Path           string `yaml:"path"`
	ExpectedStatus int    `yaml:"expected_status"`
}

// Address returns the dial address for TCP probes.
func (t Target) Address() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// URL returns the request URL for HTTP probes.
func (t Target) URL() string {
	u := "http://" + t.Host
	if t.Port != 0 {
		u = fmt.Sprintf("%s:%d", u, t.Port)
	}
	if t.Path != "" {
		if t.Path[0] != '/' {
			u += "/"
		}
		u += t.Path
	}
	return u
}

// Thresholds controls status classification.
type Thresholds struct {
	DownFailures    int      `yaml:"down_failures"`
	DegradedLatency Duration `yaml:"degraded_latency"`
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// TelegramConfig holds Telegram notification settings.
type TelegramConfig struct {
	Token    string   `yaml:"token"`
	ChatID   int64    `yaml:"chat_id"`
	Cooldown Duration `yaml:"cooldown"`
}

// NotifyConfig holds all notification configuration.
type NotifyConfig struct {
	Webhook  WebhookConfig  `yaml:"webhook"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// DataConfig holds persistence paths.
type DataConfig struct {
	Dir     string `yaml:"dir"`
	History string `yaml:"history"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Dir string `yaml:"dir"`
}

// Config is the root application configuration.
type Config struct {
	Interval    Duration      `yaml:"interval"`
	Timeout     Duration      `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	Thresholds  Thresholds    `yaml:"thresholds"`
	Targets     []Target      `yaml:"targets"`
	Notify      NotifyConfig  `yaml:"notify"`
	Server      ServerConfig  `yaml:"server"`
	Data        DataConfig    `yaml:"data"`
	Logging     LoggingConfig `yaml:"logging"`
}

var validProbes = map[string]bool{
	"ping": true,
	"icmp": true,
	"tcp":  true,
	"http": true,
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults.
	if cfg.Interval.Duration == 0 {
		cfg.Interval = Duration{3 * time.Second}
	}
	if cfg.Timeout.Duration == 0 {
		cfg.Timeout = Duration{1200 * time.Millisecond}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Thresholds.DownFailures <= 0 {
		cfg.Thresholds.DownFailures = 2
	}
	if cfg.Thresholds.DegradedLatency.Duration == 0 {
		cfg.Thresholds.DegradedLatency = Duration{120 * time.Millisecond}
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.History == "" {
		cfg.Data.History = "netmon.db"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Notify.Webhook.Cooldown.Duration == 0 {
		cfg.Notify.Webhook.Cooldown = Duration{60 * time.Second}
	}
	if cfg.Notify.Telegram.Cooldown.Duration == 0 {
		cfg.Notify.Telegram.Cooldown = Duration{60 * time.Second}
	}

	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("at least one target must be configured")
	}

	names := make(map[string]bool, len(cfg.Targets))
	for i := range cfg.Targets {
		t := &cfg.Targets[i]

		if t.Host == "" {
			return nil, fmt.Errorf("target[%d]: host is required", i)
		}
		if t.Name == "" {
			t.Name = t.Host
		}
		if names[t.Name] {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		names[t.Name] = true

		if t.Probe == "" {
			t.Probe = "ping"
		}
		if !validProbes[t.Probe] {
			return nil, fmt.Errorf("target %q: invalid probe %q (must be ping, icmp, tcp, or http)", t.Name, t.Probe)
		}
		if t.Probe == "tcp" && t.Port == 0 {
			return nil, fmt.Errorf("target %q: tcp probe requires a port", t.Name)
		}
		if t.Timeout.Duration == 0 {
			t.Timeout = cfg.Timeout
		}
	}

	return &cfg, nil
}
