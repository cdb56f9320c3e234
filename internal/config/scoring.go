package config

import (
	"fmt"
	"time"
)

// ScoringConfig configures the persona classifier, opportunity scorer
// and burden tracker.
type ScoringConfig struct {
	// Local hours treated as the night window (unusual-time flag).
	// The window wraps midnight when NightStartHour > NightEndHour.
	NightStartHour int `yaml:"night_start_hour"`
	NightEndHour   int `yaml:"night_end_hour"`

	// How long a persona assessment stays cached.
	PersonaCacheValidity string `yaml:"persona_cache_validity"`

	// Trailing window over which burden is computed.
	BurdenWindow string `yaml:"burden_window"`

	// Minimum shown interventions in the window before the burden
	// multiplier is considered reliable.
	BurdenMinSamples int `yaml:"burden_min_samples"`
}

// PersonaCacheValidityDuration returns the parsed persona cache validity.
func (s ScoringConfig) PersonaCacheValidityDuration() time.Duration {
	return duration(s.PersonaCacheValidity, 6*time.Hour)
}

// BurdenWindowDuration returns the parsed burden window.
func (s ScoringConfig) BurdenWindowDuration() time.Duration {
	return duration(s.BurdenWindow, 72*time.Hour)
}

// IsNightHour reports whether the local hour falls inside the night window.
func (s ScoringConfig) IsNightHour(hour int) bool {
	if s.NightStartHour == s.NightEndHour {
		return false
	}
	if s.NightStartHour < s.NightEndHour {
		return hour >= s.NightStartHour && hour < s.NightEndHour
	}
	// Wraps midnight, e.g. 22..7
	return hour >= s.NightStartHour || hour < s.NightEndHour
}

// Validate checks scoring bounds.
func (s ScoringConfig) Validate() error {
	if s.NightStartHour < 0 || s.NightStartHour > 23 {
		return fmt.Errorf("scoring.night_start_hour must be in [0,23]")
	}
	if s.NightEndHour < 0 || s.NightEndHour > 23 {
		return fmt.Errorf("scoring.night_end_hour must be in [0,23]")
	}
	if s.BurdenMinSamples < 1 {
		return fmt.Errorf("scoring.burden_min_samples must be >= 1")
	}
	return nil
}
