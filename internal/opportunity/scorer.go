// Package opportunity computes how receptive the current moment is to an
// interruption. The scorer is deterministic and side-effect-free: the same
// context always yields the same assessment.
package opportunity

import (
	"time"

	"nudge/internal/snapshot"
)

// Level is the qualitative band of a score.
type Level string

const (
	LevelPoor      Level = "POOR"
	LevelModerate  Level = "MODERATE"
	LevelGood      Level = "GOOD"
	LevelExcellent Level = "EXCELLENT"
)

// Hint is the scorer's own show/skip suggestion, subject to downstream
// persona and rate-limit gating.
type Hint string

const (
	HintShow Hint = "SHOW"
	HintSkip Hint = "SKIP"
)

// Sub-score weight ceilings. They sum to 100, so the clamped total always
// stays in [0,100].
const (
	maxTimeReceptiveness = 20
	maxSessionPattern    = 25
	maxCognitiveLoad     = 20
	maxHistoricalSuccess = 20
	maxUserState         = 15
)

// Breakdown component names, stable across the audit trail.
const (
	ComponentTime      = "time_receptiveness"
	ComponentSession   = "session_pattern"
	ComponentLoad      = "cognitive_load"
	ComponentHistory   = "historical_success"
	ComponentUserState = "user_state"
)

// skipThreshold: POOR and low-MODERATE hint SKIP.
const skipThreshold = 35

// Assessment is the scorer output.
type Assessment struct {
	Score     int
	Level     Level
	Hint      Hint
	Breakdown map[string]int
}

// Score assesses the context. Each component is clamped to its own
// sub-range before summing.
func Score(ic *snapshot.InterventionContext) Assessment {
	breakdown := map[string]int{
		ComponentTime:      timeReceptiveness(ic),
		ComponentSession:   sessionPattern(ic),
		ComponentLoad:      cognitiveLoad(ic),
		ComponentHistory:   historicalSuccess(ic),
		ComponentUserState: userState(ic),
	}

	total := 0
	for _, v := range breakdown {
		total += v
	}
	total = clamp(total, 0, 100)

	a := Assessment{
		Score:     total,
		Level:     LevelFor(total),
		Breakdown: breakdown,
	}
	if total < skipThreshold {
		a.Hint = HintSkip
	} else {
		a.Hint = HintShow
	}
	return a
}

// LevelFor maps a total score to its band.
func LevelFor(score int) Level {
	switch {
	case score < 25:
		return LevelPoor
	case score < 50:
		return LevelModerate
	case score < 75:
		return LevelGood
	default:
		return LevelExcellent
	}
}

// timeReceptiveness favors waking daytime hours and penalizes the
// unusual-hour flag.
func timeReceptiveness(ic *snapshot.InterventionContext) int {
	if ic.UnusualHour {
		return 2
	}
	hour := ic.Now.Hour()
	switch {
	case hour >= 9 && hour < 18:
		return maxTimeReceptiveness
	case hour >= 7 && hour < 9, hour >= 18 && hour < 22:
		return 14
	default:
		return 6
	}
}

// sessionPattern rewards sessions that are long relative to the user's own
// baseline; extremely short ones leave no room for the prompt to matter.
func sessionPattern(ic *snapshot.InterventionContext) int {
	if ic.SessionDuration < 2*time.Minute {
		return 3
	}

	baseline := 15 * time.Minute
	if ic.TodaySessionCount > 0 && ic.UsageToday > 0 {
		baseline = ic.UsageToday / time.Duration(ic.TodaySessionCount)
	}
	if baseline <= 0 {
		baseline = 15 * time.Minute
	}

	ratio := float64(ic.SessionDuration) / float64(baseline)
	switch {
	case ratio >= 2.0:
		return maxSessionPattern
	case ratio >= 1.5:
		return 20
	case ratio >= 1.0:
		return 15
	case ratio >= 0.5:
		return 10
	default:
		return 5
	}
}

// cognitiveLoad penalizes rapid switching and compulsive reopens:
// interrupting a frazzled user is less effective and more disruptive.
func cognitiveLoad(ic *snapshot.InterventionContext) int {
	score := maxCognitiveLoad
	if ic.RapidSwitching {
		score -= 8
	}
	if ic.CompulsiveReopen {
		score -= 8
	}
	return clamp(score, 0, maxCognitiveLoad)
}

// historicalSuccess rewards app/hour combinations where past interventions
// were followed by disengagement. No history degrades to neutral.
func historicalSuccess(ic *snapshot.InterventionContext) int {
	if ic.SuccessSamples == 0 {
		return maxHistoricalSuccess / 2
	}
	return clamp(int(ic.HistoricalSuccess*float64(maxHistoricalSuccess)+0.5), 0, maxHistoricalSuccess)
}

// userState rewards fatigue/doom-scroll markers where nudges tend to land.
func userState(ic *snapshot.InterventionContext) int {
	score := 7
	if ic.ExcessiveUnlocks {
		score += 4
	}
	if ic.LongScreenOn {
		score += 4
	}
	return clamp(score, 0, maxUserState)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
