package config

import (
	"fmt"
	"time"
)

// LimitsConfig configures the base rate limiter.
type LimitsConfig struct {
	// Sessions shorter than this never trigger any intervention.
	MinSessionDuration string `yaml:"min_session_duration"`

	// Minimum spacing between any two interventions, before multiplier scaling.
	GlobalCooldown string `yaml:"global_cooldown"`

	// Per-type spacing.
	ReminderCooldown     string `yaml:"reminder_cooldown"`
	SustainedUseCooldown string `yaml:"sustained_use_cooldown"`
	TimerAlertCooldown   string `yaml:"timer_alert_cooldown"`

	// Caps per rolling hour / rolling day.
	HourlyCap int `yaml:"hourly_cap"`
	DailyCap  int `yaml:"daily_cap"`
}

// MinSessionDurationValue returns the parsed session floor.
func (l LimitsConfig) MinSessionDurationValue() time.Duration {
	return duration(l.MinSessionDuration, 2*time.Minute)
}

// GlobalCooldownValue returns the parsed global cooldown.
func (l LimitsConfig) GlobalCooldownValue() time.Duration {
	return duration(l.GlobalCooldown, 15*time.Minute)
}

// ReminderCooldownValue returns the parsed reminder cooldown.
func (l LimitsConfig) ReminderCooldownValue() time.Duration {
	return duration(l.ReminderCooldown, 30*time.Minute)
}

// SustainedUseCooldownValue returns the parsed sustained-use cooldown.
func (l LimitsConfig) SustainedUseCooldownValue() time.Duration {
	return duration(l.SustainedUseCooldown, 60*time.Minute)
}

// TimerAlertCooldownValue returns the parsed timer-alert cooldown.
func (l LimitsConfig) TimerAlertCooldownValue() time.Duration {
	return duration(l.TimerAlertCooldown, 45*time.Minute)
}

// Validate checks rate-limit bounds.
func (l LimitsConfig) Validate() error {
	if l.MinSessionDurationValue() < 30*time.Second {
		return fmt.Errorf("limits.min_session_duration must be >= 30s")
	}
	if l.GlobalCooldownValue() < time.Minute {
		return fmt.Errorf("limits.global_cooldown must be >= 1m")
	}
	if l.HourlyCap < 1 {
		return fmt.Errorf("limits.hourly_cap must be >= 1")
	}
	if l.DailyCap < l.HourlyCap {
		return fmt.Errorf("limits.daily_cap must be >= limits.hourly_cap")
	}
	return nil
}
