package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nudge/internal/types"
)

var (
	evalApp      string
	evalDuration time.Duration
	evalType     string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a one-shot decision and print the full explanation",
	Long: `Evaluates a hypothetical intervention moment against the real stores
(usage history, decision log, preferences) and prints the recorded
explanation as JSON. The decision is logged exactly like one made by
the daemon, including its effect on rate-limit counters when approved.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalApp, "app", "", "App identifier (required)")
	evaluateCmd.Flags().DurationVar(&evalDuration, "duration", 10*time.Minute, "Current session duration")
	evaluateCmd.Flags().StringVar(&evalType, "type", string(types.TypeReminder), "Intervention type: reminder, sustained_use or timer_alert")
	_ = evaluateCmd.MarkFlagRequired("app")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	it, err := types.ParseInterventionType(evalType)
	if err != nil {
		return err
	}

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close(logger)

	ctx := cmd.Context()
	v := svc.eng.Evaluate(ctx, evalApp, evalDuration, it)

	// Drain the async logger so the explanation is queryable, then fetch
	// it back with the stamped gate trail.
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := svc.dlog.Close(flushCtx); err != nil {
		return fmt.Errorf("failed to flush decision log: %w", err)
	}

	recent, err := svc.decisions.Recent(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to read back decision: %w", err)
	}
	if len(recent) == 0 {
		return fmt.Errorf("decision was not recorded")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recent[0]); err != nil {
		return err
	}

	if v.Allowed {
		fmt.Println("verdict: ALLOW")
	} else {
		fmt.Printf("verdict: SKIP (retry in %s)\n", v.CooldownRemaining.Round(time.Second))
	}
	return nil
}
