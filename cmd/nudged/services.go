package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"nudge/internal/burden"
	"nudge/internal/config"
	"nudge/internal/decisionlog"
	"nudge/internal/engine"
	"nudge/internal/history"
	"nudge/internal/persona"
	"nudge/internal/prefs"
	"nudge/internal/ratelimit"
	"nudge/internal/snapshot"
)

// services holds the wired subsystem graph shared by every subcommand.
type services struct {
	hist      *history.SQLiteStore
	decisions *decisionlog.SQLiteStore
	prefs     *prefs.FileStore
	signals   *snapshot.Signals
	limiter   *ratelimit.Limiter
	dlog      *decisionlog.Logger
	eng       *engine.Engine
}

func buildServices(cfg *config.Config, logger *zap.Logger) (*services, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	hist, err := history.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage history: %w", err)
	}
	decisions, err := decisionlog.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		hist.Close()
		return nil, fmt.Errorf("failed to open decision log: %w", err)
	}
	prefStore, err := prefs.NewFileStore(cfg.DataDir, logger)
	if err != nil {
		hist.Close()
		decisions.Close()
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	signals := snapshot.NewSignals(
		cfg.Session.MinSessionGapDuration(),
		cfg.Session.CompulsiveWindowDuration(),
		cfg.Session.CompulsiveReopens,
	)
	builder := snapshot.NewBuilder(hist, signals, decisions, cfg.Scoring, logger)
	classifier := persona.NewClassifier(hist, cfg.Scoring, logger)
	burdenTracker := burden.NewTracker(decisions, cfg.Scoring, logger)
	limiter := ratelimit.NewLimiter(prefStore, cfg.Limits, logger)
	dlog := decisionlog.NewLogger(decisions, logger, decisionlog.DefaultQueueSize)

	eng := engine.New(cfg, builder, classifier, burdenTracker, limiter, dlog,
		decisions, decisions, logger)

	return &services{
		hist:      hist,
		decisions: decisions,
		prefs:     prefStore,
		signals:   signals,
		limiter:   limiter,
		dlog:      dlog,
		eng:       eng,
	}, nil
}

// close flushes and releases everything in dependency order: the async
// decision logger first so its queue drains into the store.
func (s *services) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.dlog.Close(ctx); err != nil {
		logger.Warn("decision logger close failed", zap.Error(err))
	}
	if err := s.prefs.Close(); err != nil {
		logger.Warn("preference store close failed", zap.Error(err))
	}
	if err := s.decisions.Close(); err != nil {
		logger.Warn("decision store close failed", zap.Error(err))
	}
	if err := s.hist.Close(); err != nil {
		logger.Warn("history store close failed", zap.Error(err))
	}
}
