package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nudge/internal/types"
)

var feedbackOutcome string

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record user feedback on the last intervention",
	Long: `Records a helpful or disruptive outcome and nudges the cooldown
multiplier accordingly. Three disruptive outcomes in a row escalate the
multiplier outright.`,
	RunE: runFeedback,
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackOutcome, "outcome", "", "helpful or disruptive (required)")
	_ = feedbackCmd.MarkFlagRequired("outcome")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	outcome, err := types.ParseFeedbackOutcome(feedbackOutcome)
	if err != nil {
		return err
	}

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close(logger)

	mult := svc.eng.AdjustForFeedback(cmd.Context(), outcome)
	fmt.Printf("recorded %s feedback, cooldown multiplier now %.2f\n", outcome, mult)
	return nil
}
