package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	businessStore "github.com/invisifeed/invisifeed/internal/business/store"
)

var sweepCmd = &cobra.Command{
	Use:     "sweep-counters",
	Aliases: []string{"sweep"},
	Short:   "Zero elapsed upload windows and expire ended plans",
	Long: `sweep-counters is meant to run periodically. It resets upload counters whose
rolling window has elapsed and returns businesses with an ended pro or trial
plan to the free plan.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().Duration("window", 0, "Upload window length (defaults to LIMIT_WINDOW)")

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	window, _ := cmd.Flags().GetDuration("window")
	if window <= 0 {
		window = cfg.Limits.Window
	}

	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	store := businessStore.New(db)
	now := time.Now()

	counters, err := store.SweepCounters(cmd.Context(), now.Add(-window))
	if err != nil {
		return err
	}

	plans, err := store.ExpirePlans(cmd.Context(), now)
	if err != nil {
		return err
	}

	slog.Info("sweep finished", "counters_reset", counters, "plans_expired", plans)

	return nil
}
