package config

import (
	"fmt"
	"time"
)

// SessionConfig configures the session tracker.
type SessionConfig struct {
	// No-signal window before a session is ended with reason "timeout".
	// Sized to tolerate upstream polling jitter.
	GraceWindow string `yaml:"grace_window"`

	// Base continuous-use duration that fires the threshold event.
	// The effective value is this scaled by the adaptive multiplier.
	BaseThreshold string `yaml:"base_threshold"`

	// Gap below which a reopen counts toward the compulsive pattern.
	MinSessionGap string `yaml:"min_session_gap"`

	// Window within which repeated reopens are considered compulsive.
	CompulsiveWindow string `yaml:"compulsive_window"`

	// Reopens within the window required to raise the compulsive flag.
	CompulsiveReopens int `yaml:"compulsive_reopens"`
}

// GraceWindowDuration returns the parsed grace window.
func (s SessionConfig) GraceWindowDuration() time.Duration {
	return duration(s.GraceWindow, 45*time.Second)
}

// BaseThresholdDuration returns the parsed base threshold.
func (s SessionConfig) BaseThresholdDuration() time.Duration {
	return duration(s.BaseThreshold, 20*time.Minute)
}

// MinSessionGapDuration returns the parsed reopen gap.
func (s SessionConfig) MinSessionGapDuration() time.Duration {
	return duration(s.MinSessionGap, 2*time.Minute)
}

// CompulsiveWindowDuration returns the parsed compulsive-reopen window.
func (s SessionConfig) CompulsiveWindowDuration() time.Duration {
	return duration(s.CompulsiveWindow, 5*time.Minute)
}

// Validate checks session tracking bounds.
func (s SessionConfig) Validate() error {
	if s.GraceWindowDuration() < 5*time.Second {
		return fmt.Errorf("session.grace_window must be >= 5s")
	}
	if s.BaseThresholdDuration() < time.Minute {
		return fmt.Errorf("session.base_threshold must be >= 1m")
	}
	if s.CompulsiveReopens < 2 {
		return fmt.Errorf("session.compulsive_reopens must be >= 2")
	}
	return nil
}

// PollConfig configures the adaptive polling loop.
type PollConfig struct {
	ActiveInterval    string `yaml:"active_interval"`
	IdleInterval      string `yaml:"idle_interval"`
	ScreenOffInterval string `yaml:"screen_off_interval"`
}

// ActiveIntervalDuration returns the tick interval while a monitored app is foreground.
func (p PollConfig) ActiveIntervalDuration() time.Duration {
	return duration(p.ActiveInterval, 5*time.Second)
}

// IdleIntervalDuration returns the tick interval while idle.
func (p PollConfig) IdleIntervalDuration() time.Duration {
	return duration(p.IdleInterval, 30*time.Second)
}

// ScreenOffIntervalDuration returns the tick interval while the screen is off.
func (p PollConfig) ScreenOffIntervalDuration() time.Duration {
	return duration(p.ScreenOffInterval, 60*time.Second)
}
