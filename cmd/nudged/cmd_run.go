package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nudge/internal/config"
	"nudge/internal/engine"
	"nudge/internal/foreground"
	"nudge/internal/session"
	"nudge/internal/types"
)

var replayPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the decision daemon",
	Long: `Starts the polling loop against a foreground source and keeps it
running until SIGINT/SIGTERM. The config file is watched and tunable
knobs (polling cadence, monitored apps, session thresholds, caps) are
re-applied on change without a restart.

Without --replay the daemon runs against a static screen-on source,
which is only useful for watching the engine idle. Pass a JSONL replay
file to drive it with recorded foreground events.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&replayPath, "replay", "", "JSONL file of foreground events to replay")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close(logger)

	var source foreground.Source
	if replayPath != "" {
		source, err = foreground.LoadReplayFile(replayPath)
		if err != nil {
			return fmt.Errorf("failed to load replay file: %w", err)
		}
		logger.Info("replaying foreground events", zap.String("path", replayPath))
	} else {
		source = &foreground.Static{State: foreground.State{ScreenOn: true}}
		logger.Warn("no foreground source configured, running idle; use --replay")
	}

	notify := func(v types.Verdict, s session.Session) {
		logger.Info("intervention approved",
			zap.String("app", s.App),
			zap.Duration("session", s.Accumulated),
			zap.Int("score", v.OpportunityScore),
			zap.String("persona", v.Persona))
		fmt.Fprintf(os.Stdout, "[nudge] %s: %s\n", s.App, v.Reason)
	}

	poller := engine.NewPoller(cfg, source, svc.signals, svc.eng, svc.hist, notify, logger)

	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		poller.UpdateConfig(next)
		svc.limiter.UpdateConfig(next.Limits)
	}, logger)
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher failed to start", zap.Error(err))
		}
		defer watcher.Stop()
	}

	poller.Start(ctx)
	logger.Info("daemon started",
		zap.Strings("monitored_apps", cfg.MonitoredApps),
		zap.String("data_dir", cfg.DataDir))

	<-ctx.Done()
	logger.Info("shutting down")
	poller.Stop()
	return nil
}
