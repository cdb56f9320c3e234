package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nudge/internal/config"
	"nudge/internal/history"
	"nudge/internal/session"
)

// SuccessSource supplies the learned app/hour intervention success rate.
// Implemented by the decision log store; nil disables the signal.
type SuccessSource interface {
	SuccessRate(ctx context.Context, app string, hour int) (rate float64, samples int, err error)
}

// Builder aggregates session state, usage history, goal configuration and
// behavioral cues into one InterventionContext. Lookups are independent and
// read-only, so they run concurrently; any single failure degrades that
// field to its neutral default instead of failing the build.
type Builder struct {
	store   history.Store
	signals *Signals
	success SuccessSource
	scoring config.ScoringConfig
	logger  *zap.Logger
}

// NewBuilder creates a context builder. success may be nil.
func NewBuilder(store history.Store, signals *Signals, success SuccessSource, scoring config.ScoringConfig, logger *zap.Logger) *Builder {
	return &Builder{
		store:   store,
		signals: signals,
		success: success,
		scoring: scoring,
		logger:  logger.Named("snapshot"),
	}
}

// Build computes a fresh context for the given open session at now.
func (b *Builder) Build(ctx context.Context, s *session.Session, now time.Time) *InterventionContext {
	ic := &InterventionContext{
		App:                  s.App,
		Now:                  now,
		SessionDuration:      s.Accumulated,
		TimeSinceLastSession: -1,
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var today, yesterday, week []history.UsageSession

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		today, err = b.store.AppSessions(gctx, s.App, dayStart, now)
		if err != nil {
			b.logger.Warn("today lookup failed, using neutral defaults", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		var err error
		yesterday, err = b.store.AppSessions(gctx, s.App, dayStart.AddDate(0, 0, -1), dayStart)
		if err != nil {
			b.logger.Warn("yesterday lookup failed, using neutral defaults", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		var err error
		week, err = b.store.AppSessions(gctx, s.App, now.AddDate(0, 0, -7), now)
		if err != nil {
			b.logger.Warn("7-day lookup failed, using neutral defaults", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		goal, err := b.store.Goal(gctx, s.App)
		if err != nil {
			b.logger.Warn("goal lookup failed, treating as unset", zap.Error(err))
			return nil
		}
		if goal != nil {
			ic.DailyGoalMinutes = goal.DailyLimitMinutes
			ic.StreakDays = goal.StreakDays
		}
		return nil
	})

	g.Go(func() error {
		install, err := b.store.InstallDate(gctx)
		if err != nil {
			b.logger.Warn("install date lookup failed, treating as day zero", zap.Error(err))
			return nil
		}
		ic.DaysSinceInstall = int(now.Sub(install).Hours() / 24)
		return nil
	})

	if b.success != nil {
		g.Go(func() error {
			rate, samples, err := b.success.SuccessRate(gctx, s.App, now.Hour())
			if err != nil {
				b.logger.Warn("success-rate lookup failed, treating as no history", zap.Error(err))
				return nil
			}
			ic.HistoricalSuccess = rate
			ic.SuccessSamples = samples
			return nil
		})
	}

	// Lookups never return errors (they degrade), so Wait only orders them.
	_ = g.Wait()

	ic.TodaySessionCount = len(today)
	for _, us := range today {
		ic.UsageToday += us.Duration
	}
	if n := len(today); n > 0 {
		if last := today[n-1].End; last.Before(s.Start) {
			ic.TimeSinceLastSession = s.Start.Sub(last)
		}
	}
	for _, us := range yesterday {
		ic.UsageYesterday += us.Duration
	}
	var weekTotal time.Duration
	for _, us := range week {
		weekTotal += us.Duration
	}
	ic.Avg7Day = weekTotal / 7

	ic.UnusualHour = b.scoring.IsNightHour(now.Hour())
	if b.signals != nil {
		ic.RapidSwitching = b.signals.RapidSwitching(now)
		ic.CompulsiveReopen = b.signals.CompulsiveReopen(s.App, now)
		ic.LongScreenOn = b.signals.LongScreenOn(now)
		ic.ExcessiveUnlocks = b.signals.ExcessiveUnlocks(now)
	}

	return ic
}
