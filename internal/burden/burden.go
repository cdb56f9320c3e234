// Package burden derives a recent-fatigue signal from intervention
// frequency and feedback outcomes. It is layered on top of, not a
// replacement for, the persona cooldown multiplier.
package burden

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nudge/internal/config"
)

// Level is the qualitative burden band.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Metrics is the derived fatigue state. It is computed, never stored.
type Metrics struct {
	// Score in [0,1]; 0 means no recent intervention pressure.
	Score float64
	Level Level

	// Reliable is false when too few samples exist; callers must then use
	// a neutral multiplier of 1.0.
	Reliable bool

	ShownInWindow int
	NegativeRatio float64
}

// maxMultiplier bounds the burden contribution on its own.
const maxMultiplier = 2.0

// HistorySource exposes the slice of intervention history the tracker
// needs. Implemented by the decision log store.
type HistorySource interface {
	ShownSince(ctx context.Context, since time.Time) (shown int, lastShown time.Time, err error)
	FeedbackSince(ctx context.Context, since time.Time) (helpful, disruptive int, err error)
}

// Tracker computes burden metrics over a trailing window.
type Tracker struct {
	source HistorySource
	cfg    config.ScoringConfig
	logger *zap.Logger

	// Injected in tests.
	now func() time.Time
}

// NewTracker creates a burden tracker.
func NewTracker(source HistorySource, cfg config.ScoringConfig, logger *zap.Logger) *Tracker {
	return &Tracker{
		source: source,
		cfg:    cfg,
		logger: logger.Named("burden"),
		now:    time.Now,
	}
}

// Current computes fresh metrics. Lookup failures degrade to an
// unreliable zero-burden result.
func (t *Tracker) Current(ctx context.Context) Metrics {
	now := t.now()
	since := now.Add(-t.cfg.BurdenWindowDuration())

	shown, lastShown, err := t.source.ShownSince(ctx, since)
	if err != nil {
		t.logger.Warn("shown lookup failed, burden unreliable", zap.Error(err))
		return Metrics{Level: LevelLow}
	}
	helpful, disruptive, err := t.source.FeedbackSince(ctx, since)
	if err != nil {
		t.logger.Warn("feedback lookup failed, burden unreliable", zap.Error(err))
		return Metrics{Level: LevelLow}
	}

	var negRatio float64
	if helpful+disruptive > 0 {
		negRatio = float64(disruptive) / float64(helpful+disruptive)
	}

	// Frequency pressure saturates at 10 interventions per window.
	freq := float64(shown) / 10.0
	if freq > 1 {
		freq = 1
	}

	// Recency pressure decays over two hours since the last intervention.
	var recency float64
	if !lastShown.IsZero() {
		elapsed := now.Sub(lastShown)
		if elapsed < 2*time.Hour {
			recency = 1 - float64(elapsed)/float64(2*time.Hour)
		}
	}

	score := 0.5*freq + 0.35*negRatio + 0.15*recency

	m := Metrics{
		Score:         score,
		Level:         levelFor(score),
		Reliable:      shown >= t.cfg.BurdenMinSamples,
		ShownInWindow: shown,
		NegativeRatio: negRatio,
	}
	return m
}

// RecommendedMultiplier converts metrics into a cooldown multiplier.
// Unreliable metrics always yield the neutral 1.0.
func (m Metrics) RecommendedMultiplier() float64 {
	if !m.Reliable {
		return 1.0
	}
	mult := 1.0 + m.Score
	if mult > maxMultiplier {
		mult = maxMultiplier
	}
	return mult
}

func levelFor(score float64) Level {
	switch {
	case score < 0.33:
		return LevelLow
	case score < 0.66:
		return LevelModerate
	default:
		return LevelHigh
	}
}
