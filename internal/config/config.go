package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/0xPuncker/cron-panel/internal/store"
	"github.com/0xPuncker/cron-panel/pkg/types"
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig    `json:"server"`
	Store   store.Config    `json:"store"`
	Panel   PanelConfig     `json:"panel"`
	Slack   SlackConfig     `json:"slack"`
	Metrics MetricsConfig   `json:"metrics"`
	Jobs    types.JobConfig `json:"jobs"`
}

type ServerConfig struct {
	Port         string `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type PanelConfig struct {
	HooksFile      string  `json:"hooks_file"`
	StrictTriggers *bool   `json:"strict_triggers,omitempty"`
	TriggerTimeout string  `json:"trigger_timeout"`
	MaxOutput      int     `json:"max_output"`
	ConsoleTTL     string  `json:"console_ttl"`
	NonceTTL       string  `json:"nonce_ttl"`
	RateLimit      float64 `json:"rate_limit"`
	RateBurst      int     `json:"rate_burst"`
	PollInterval   string  `json:"poll_interval"`
}

// Strict reports whether triggers must name one exact (time, hook, hash)
// occurrence. It defaults to true.
func (p PanelConfig) Strict() bool {
	return p.StrictTriggers == nil || *p.StrictTriggers
}

type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if err := godotenv.Load(); err != nil {
			if err := godotenv.Load(".env.local"); err != nil {
				fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
			}
		}

		for _, env := range []string{
			"PORT",
			"STORE_DRIVER",
			"STORE_PATH",
			"HOOKS_FILE",
			"TRIGGER_TIMEOUT",
		} {
			fmt.Printf("%s=%s\n", env, os.Getenv(env))
		}

		config := &Config{
			Server: ServerConfig{
				Port: getEnv("PORT", "8080"),
			},
			Store: store.Config{
				Driver: getEnv("STORE_DRIVER", "memory"),
				Path:   getEnv("STORE_PATH", "data/cron-panel.db"),
			},
			Panel: PanelConfig{
				HooksFile:      getEnv("HOOKS_FILE", "config/hooks.yaml"),
				TriggerTimeout: getEnv("TRIGGER_TIMEOUT", "30s"),
			},
			Slack: SlackConfig{
				WebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			},
			Metrics: MetricsConfig{
				Enabled: true,
			},
		}
		config.applyDefaults()
		return config, config.Validate()
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Slack.WebhookURL == "" {
		config.Slack.WebhookURL = os.Getenv("SLACK_WEBHOOK_URL")
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func DefaultConfig() *Config {
	config := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "60s"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Panel.HooksFile == "" {
		c.Panel.HooksFile = "config/hooks.yaml"
	}
	if c.Panel.TriggerTimeout == "" {
		c.Panel.TriggerTimeout = "30s"
	}
	if c.Panel.MaxOutput <= 0 {
		c.Panel.MaxOutput = 64 * 1024
	}
	if c.Panel.ConsoleTTL == "" {
		c.Panel.ConsoleTTL = "10m"
	}
	if c.Panel.NonceTTL == "" {
		c.Panel.NonceTTL = "12h"
	}
	if c.Panel.RateLimit <= 0 {
		c.Panel.RateLimit = 1
	}
	if c.Panel.RateBurst <= 0 {
		c.Panel.RateBurst = 5
	}
	if c.Panel.PollInterval == "" {
		c.Panel.PollInterval = "30s"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Jobs.MaxConcurrent <= 0 {
		c.Jobs.MaxConcurrent = 1
	}
	if c.Jobs.Tick == "" {
		c.Jobs.Tick = "@every 1m"
	}
}

// Validate checks every duration string up front so the server never starts with a
// value it cannot use.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"server.read_timeout":   c.Server.ReadTimeout,
		"server.write_timeout":  c.Server.WriteTimeout,
		"panel.trigger_timeout": c.Panel.TriggerTimeout,
		"panel.console_ttl":     c.Panel.ConsoleTTL,
		"panel.nonce_ttl":       c.Panel.NonceTTL,
		"panel.poll_interval":   c.Panel.PollInterval,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	switch strings.ToLower(c.Store.Driver) {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}

	return nil
}

// Duration parses a value that Validate has already accepted.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
