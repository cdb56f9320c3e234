// Package ratelimit enforces the hard floors and ceilings between
// interventions: session-length floor, global and per-type cooldowns, and
// hourly/daily caps. Its counters are the only mutable persisted state in
// the engine and every read-modify-write happens under one lock.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nudge/internal/config"
	"nudge/internal/prefs"
	"nudge/internal/types"
)

// Cooldown multiplier bounds and adjustment factors.
const (
	MultiplierFloor   = 0.5
	MultiplierCeiling = 3.0

	escalateFactor = 1.5
	feedbackStep   = 0.1
)

// Gate names, stable across the audit trail.
const (
	GateSessionFloor = "session_floor"
	GateGlobal       = "global_cooldown"
	GateTypeCooldown = "type_cooldown"
	GateHourlyCap    = "hourly_cap"
	GateDailyCap     = "daily_cap"
)

// Decision is the outcome of one CanShow check.
type Decision struct {
	Allowed           bool
	Reason            string
	CooldownRemaining time.Duration
	Gates             []types.GateResult
}

// Limiter gates interventions against persisted counters.
type Limiter struct {
	mu     sync.Mutex
	store  prefs.Store
	cfg    config.LimitsConfig
	logger *zap.Logger
}

// NewLimiter creates a limiter over the given counter store.
func NewLimiter(store prefs.Store, cfg config.LimitsConfig, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:  store,
		cfg:    cfg,
		logger: logger.Named("ratelimit"),
	}
}

// UpdateConfig swaps the limit tunables after a config reload. Recorded
// timestamps and the multiplier are untouched.
func (l *Limiter) UpdateConfig(cfg config.LimitsConfig) {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
}

// CanShow checks every gate in order; the first failure short-circuits the
// verdict but all gate results up to it are recorded for the audit trail.
func (l *Limiter) CanShow(t types.InterventionType, sessionDuration time.Duration, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := Decision{Allowed: true}

	// 1. Session-duration floor.
	if floor := l.cfg.MinSessionDurationValue(); sessionDuration < floor {
		return d.fail(GateSessionFloor,
			fmt.Sprintf("session %s below minimum %s", sessionDuration.Round(time.Second), floor), 0)
	}
	d.pass(GateSessionFloor)

	// 2. Global cooldown, scaled by the persisted multiplier.
	mult := l.multiplierLocked()
	globalNeed := time.Duration(float64(l.cfg.GlobalCooldownValue()) * mult)
	if last, ok := l.store.GetTime(prefs.KeyLastIntervention); ok {
		if elapsed := now.Sub(last); elapsed < globalNeed {
			return d.fail(GateGlobal,
				fmt.Sprintf("global cooldown %s not elapsed", globalNeed.Round(time.Second)),
				globalNeed-elapsed)
		}
	}
	d.pass(GateGlobal)

	// 3. Type-specific cooldown.
	typeNeed := l.typeCooldown(t)
	if last, ok := l.store.GetTime(prefs.LastShownKey(string(t))); ok {
		if elapsed := now.Sub(last); elapsed < typeNeed {
			return d.fail(GateTypeCooldown,
				fmt.Sprintf("%s cooldown %s not elapsed", t, typeNeed.Round(time.Second)),
				typeNeed-elapsed)
		}
	}
	d.pass(GateTypeCooldown)

	shown := l.store.GetTimes(prefs.KeyShownTimestamps)

	// 4. Hourly cap over a rolling hour.
	hourAgo := now.Add(-time.Hour)
	var inHour int
	oldestInHour := now
	for _, ts := range shown {
		if ts.After(hourAgo) {
			inHour++
			if ts.Before(oldestInHour) {
				oldestInHour = ts
			}
		}
	}
	if inHour >= l.cfg.HourlyCap {
		return d.fail(GateHourlyCap,
			fmt.Sprintf("hourly cap %d reached", l.cfg.HourlyCap),
			oldestInHour.Add(time.Hour).Sub(now))
	}
	d.pass(GateHourlyCap)

	// 5. Daily cap since local midnight.
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var inDay int
	for _, ts := range shown {
		if !ts.Before(dayStart) {
			inDay++
		}
	}
	if inDay >= l.cfg.DailyCap {
		return d.fail(GateDailyCap,
			fmt.Sprintf("daily cap %d reached", l.cfg.DailyCap),
			dayStart.AddDate(0, 0, 1).Sub(now))
	}
	d.pass(GateDailyCap)

	return d
}

// Record notes that an intervention of type t was shown at now. Only the
// recording step mutates the counters after an approval.
func (l *Limiter) Record(t types.InterventionType, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.store.SetTime(prefs.KeyLastIntervention, now)
	l.store.SetTime(prefs.LastShownKey(string(t)), now)

	shown := l.store.GetTimes(prefs.KeyShownTimestamps)
	cutoff := now.Add(-48 * time.Hour)
	kept := shown[:0]
	for _, ts := range shown {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.store.SetTimes(prefs.KeyShownTimestamps, kept)
}

// Escalate grows the cooldown multiplier when the user keeps dismissing
// negatively. Growth only, capped at the ceiling.
func (l *Limiter) Escalate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	mult := l.multiplierLocked() * escalateFactor
	if mult > MultiplierCeiling {
		mult = MultiplierCeiling
	}
	l.store.SetFloat(prefs.KeyCooldownMultiplier, mult)
	l.logger.Info("cooldown multiplier escalated", zap.Float64("multiplier", mult))
	return mult
}

// Reset snaps the multiplier back to 1.0 on positive engagement.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store.SetFloat(prefs.KeyCooldownMultiplier, 1.0)
	l.logger.Info("cooldown multiplier reset")
}

// AdjustForFeedback nudges the multiplier by a fixed percentage per
// outcome, clamped to [0.5, 3.0].
func (l *Limiter) AdjustForFeedback(outcome types.FeedbackOutcome) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	mult := l.multiplierLocked()
	switch outcome {
	case types.FeedbackHelpful:
		mult *= 1 - feedbackStep
	case types.FeedbackDisruptive:
		mult *= 1 + feedbackStep
	}
	if mult < MultiplierFloor {
		mult = MultiplierFloor
	}
	if mult > MultiplierCeiling {
		mult = MultiplierCeiling
	}
	l.store.SetFloat(prefs.KeyCooldownMultiplier, mult)
	return mult
}

// Multiplier returns the current persisted multiplier.
func (l *Limiter) Multiplier() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.multiplierLocked()
}

func (l *Limiter) multiplierLocked() float64 {
	return l.store.GetFloat(prefs.KeyCooldownMultiplier, 1.0)
}

func (l *Limiter) typeCooldown(t types.InterventionType) time.Duration {
	switch t {
	case types.TypeReminder:
		return l.cfg.ReminderCooldownValue()
	case types.TypeSustainedUse:
		return l.cfg.SustainedUseCooldownValue()
	case types.TypeTimerAlert:
		return l.cfg.TimerAlertCooldownValue()
	default:
		return l.cfg.SustainedUseCooldownValue()
	}
}

func (d *Decision) pass(gate string) {
	d.Gates = append(d.Gates, types.GateResult{Gate: gate, Passed: true})
}

func (d Decision) fail(gate, detail string, remaining time.Duration) Decision {
	d.Gates = append(d.Gates, types.GateResult{Gate: gate, Passed: false, Detail: detail})
	d.Allowed = false
	d.Reason = detail
	d.CooldownRemaining = remaining
	return d
}
