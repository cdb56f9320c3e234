// Package snapshot builds the immutable InterventionContext consumed by
// the scoring subsystems. A context is computed fresh per decision from
// read-only historical data plus a short in-memory signal history, and is
// never mutated after construction.
package snapshot

import "time"

// InterventionContext is one frozen view of the user's current and
// historical behavior around the target app.
type InterventionContext struct {
	App string
	Now time.Time

	// Current session
	SessionDuration time.Duration

	// App-scoped history
	TodaySessionCount    int
	TimeSinceLastSession time.Duration // -1 when no prior session today
	UsageToday           time.Duration
	UsageYesterday       time.Duration
	Avg7Day              time.Duration

	// Goal configuration
	DailyGoalMinutes int // 0 when unset
	StreakDays       int

	DaysSinceInstall int

	// Learned signal: fraction of past interventions at this app/hour that
	// were followed by disengagement. Valid only when SuccessSamples > 0.
	HistoricalSuccess float64
	SuccessSamples    int

	// Behavioral flags
	RapidSwitching   bool
	CompulsiveReopen bool
	UnusualHour      bool
	LongScreenOn     bool
	ExcessiveUnlocks bool
}
