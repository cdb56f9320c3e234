package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"nudge/internal/decisionlog"
)

var (
	decisionsLimit int
	decisionsJSON  bool
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Show recent decision explanations",
	RunE:  runDecisions,
}

func init() {
	decisionsCmd.Flags().IntVar(&decisionsLimit, "limit", 20, "Number of decisions to show")
	decisionsCmd.Flags().BoolVar(&decisionsJSON, "json", false, "Print full explanations as JSON")
}

func runDecisions(cmd *cobra.Command, args []string) error {
	store, err := decisionlog.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open decision log: %w", err)
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), decisionsLimit)
	if err != nil {
		return fmt.Errorf("failed to read decisions: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no decisions recorded yet")
		return nil
	}

	if decisionsJSON {
		return printJSON(entries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tAPP\tTYPE\tSCORE\tPERSONA\tVERDICT\tREASON")
	for _, e := range entries {
		verdict := "SKIP"
		reason := e.BlockingReason
		if e.Allowed {
			verdict = "ALLOW"
			reason = e.Summary
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d (%s)\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.DateTime),
			e.App, e.Type, e.OpportunityScore, e.OpportunityLevel,
			e.Persona, verdict, reason)
	}
	return w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
