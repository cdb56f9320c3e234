// Package prefs is the narrow counter/preference store behind which the
// engine persists its small set of numeric and timestamp values (cooldown
// multiplier, last-intervention timestamps, rolling counters). Keeping the
// interface this small keeps the core testable without platform storage.
package prefs

import "time"

// Keys used by the rate limiter. Collected here so the file format is
// greppable in one place.
const (
	KeyCooldownMultiplier = "cooldown_multiplier"
	KeyLastIntervention   = "last_intervention"
	KeyShownTimestamps    = "shown_timestamps"
)

// LastShownKey returns the per-type last-shown timestamp key.
func LastShownKey(interventionType string) string {
	return "last_shown_" + interventionType
}

// Store holds small typed values. Implementations must keep the in-memory
// value authoritative when persistence fails (the caller logs and
// continues); Set methods therefore do not return errors.
type Store interface {
	GetFloat(key string, def float64) float64
	SetFloat(key string, v float64)

	GetTime(key string) (time.Time, bool)
	SetTime(key string, t time.Time)

	GetTimes(key string) []time.Time
	SetTimes(key string, ts []time.Time)

	// Flush forces pending values to durable storage.
	Flush() error
	Close() error
}
