package persona

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"nudge/internal/config"
	"nudge/internal/history"
)

const (
	statsWindowDays = 28

	newUserTenureDays  = 7
	newUserMinSessions = 10

	addictedDaily = 4 * time.Hour
	heavyDaily    = 150 * time.Minute
	regularDaily  = time.Hour
	casualDaily   = 20 * time.Minute
)

// Classifier derives the persona from aggregate historical statistics.
// Results are cached for a bounded validity window so threshold crossings
// do not recompute on every tick.
type Classifier struct {
	store  history.Store
	cfg    config.ScoringConfig
	logger *zap.Logger

	mu     sync.Mutex
	cached *Assessment

	// Injected in tests.
	now func() time.Time
}

// NewClassifier creates a classifier over the usage history store.
func NewClassifier(store history.Store, cfg config.ScoringConfig, logger *zap.Logger) *Classifier {
	return &Classifier{
		store:  store,
		cfg:    cfg,
		logger: logger.Named("persona"),
		now:    time.Now,
	}
}

// Detect classifies the user, serving the cached assessment while it is
// still valid. forceRefresh bypasses the cache. Lookup failures degrade to
// the last cached assessment, or to a low-confidence regular persona.
func (c *Classifier) Detect(ctx context.Context, forceRefresh bool) Assessment {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !forceRefresh && c.cached != nil &&
		now.Sub(c.cached.ComputedAt) < c.cfg.PersonaCacheValidityDuration() {
		return *c.cached
	}

	a, ok := c.classify(ctx, now)
	if !ok {
		if c.cached != nil {
			return *c.cached
		}
		return Assessment{
			Persona:    PersonaRegular,
			Confidence: ConfidenceLow,
			ComputedAt: now,
		}
	}

	c.cached = &a
	return a
}

func (c *Classifier) classify(ctx context.Context, now time.Time) (Assessment, bool) {
	sessions, err := c.store.SessionsBetween(ctx, now.AddDate(0, 0, -statsWindowDays), now)
	if err != nil {
		c.logger.Warn("session stats lookup failed", zap.Error(err))
		return Assessment{}, false
	}

	tenureDays := 0
	if install, err := c.store.InstallDate(ctx); err != nil {
		c.logger.Warn("install date lookup failed", zap.Error(err))
	} else {
		tenureDays = int(now.Sub(install).Hours() / 24)
	}

	// Daily totals over the observed window.
	daily := make(map[string]time.Duration)
	var total time.Duration
	for _, s := range sessions {
		day := s.Start.Format("2006-01-02")
		daily[day] += s.Duration
		total += s.Duration
	}

	observedDays := tenureDays
	if observedDays > statsWindowDays {
		observedDays = statsWindowDays
	}
	if observedDays < 1 {
		observedDays = 1
	}
	avgDaily := total / time.Duration(observedDays)

	a := Assessment{
		AvgDailyUsage:  avgDaily,
		SampleSessions: len(sessions),
		SampleDays:     len(daily),
		TenureDays:     tenureDays,
		ComputedAt:     now,
	}

	// A brand-new installation gets the onboarding persona regardless of
	// its (insufficient) statistics.
	if tenureDays < newUserTenureDays || len(sessions) < newUserMinSessions {
		a.Persona = PersonaNewUser
		a.Confidence = ConfidenceLow
		return a, true
	}

	switch {
	case avgDaily >= addictedDaily:
		a.Persona = PersonaAddicted
	case avgDaily >= heavyDaily:
		a.Persona = PersonaHeavy
	case avgDaily >= regularDaily:
		a.Persona = PersonaRegular
	case avgDaily >= casualDaily:
		a.Persona = PersonaCasual
	default:
		a.Persona = PersonaConscious
	}

	a.Confidence = confidence(len(daily), len(sessions), dailyVariance(daily, avgDaily))
	return a, true
}

// confidence scales with history depth and shrinks when day-to-day usage
// is wildly unstable.
func confidence(days, sessions int, relStddev float64) Confidence {
	level := ConfidenceLow
	switch {
	case days >= 21 && sessions >= 100:
		level = ConfidenceHigh
	case days >= 7 && sessions >= 30:
		level = ConfidenceMedium
	}
	if relStddev > 1.0 && level == ConfidenceHigh {
		level = ConfidenceMedium
	}
	return level
}

// dailyVariance returns stddev of daily totals relative to the mean.
func dailyVariance(daily map[string]time.Duration, mean time.Duration) float64 {
	if len(daily) < 2 || mean <= 0 {
		return 0
	}
	var sum float64
	m := float64(mean)
	for _, d := range daily {
		diff := float64(d) - m
		sum += diff * diff
	}
	return math.Sqrt(sum/float64(len(daily))) / m
}
