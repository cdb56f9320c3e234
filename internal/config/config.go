package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all nudge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Directory for databases, counters and logs
	DataDir string `yaml:"data_dir"`

	// Apps whose foreground use is monitored
	MonitoredApps []string `yaml:"monitored_apps"`

	// Session tracking
	Session SessionConfig `yaml:"session"`

	// Adaptive polling loop
	Poll PollConfig `yaml:"poll"`

	// Scoring subsystems
	Scoring ScoringConfig `yaml:"scoring"`

	// Rate limiting
	Limits LimitsConfig `yaml:"limits"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "nudge",
		Version: "1.0.0",
		DataDir: "data",

		MonitoredApps: []string{},

		Session: SessionConfig{
			GraceWindow:       "45s",
			BaseThreshold:     "20m",
			MinSessionGap:     "2m",
			CompulsiveWindow:  "5m",
			CompulsiveReopens: 3,
		},

		Poll: PollConfig{
			ActiveInterval:    "5s",
			IdleInterval:      "30s",
			ScreenOffInterval: "60s",
		},

		Scoring: ScoringConfig{
			NightStartHour:       22,
			NightEndHour:         7,
			PersonaCacheValidity: "6h",
			BurdenWindow:         "72h",
			BurdenMinSamples:     5,
		},

		Limits: LimitsConfig{
			MinSessionDuration:   "2m",
			GlobalCooldown:       "15m",
			ReminderCooldown:     "30m",
			SustainedUseCooldown: "60m",
			TimerAlertCooldown:   "45m",
			HourlyCap:            2,
			DailyCap:             6,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides overrides a handful of keys from the environment.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NUDGE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("NUDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NUDGE_DAILY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Limits.DailyCap = n
		}
	}
}

// Validate checks that all sections are within acceptable ranges.
func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	return nil
}

// duration parses a duration string, falling back to def on empty or bad input.
func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
