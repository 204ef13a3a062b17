package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/invisifeed/invisifeed/internal/business"
	businessStore "github.com/invisifeed/invisifeed/internal/business/store"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Assign a plan to a business",
	Example: `  # Grant pro until the end of the year
  invisifeed-admin plan --business 4f6c2a9e-1b7d-4f0a-9a43-0c2f1d9e8b11 --plan pro --until 2026-12-31

  # Drop back to free
  invisifeed-admin plan --business 4f6c2a9e-1b7d-4f0a-9a43-0c2f1d9e8b11 --plan free`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().String("business", "", "Business ID")
	planCmd.Flags().String("plan", "", "Plan name: free, pro or pro-trial")
	planCmd.Flags().String("until", "", "Last day of a paid plan (format: YYYY-MM-DD)")
	_ = planCmd.MarkFlagRequired("business")
	_ = planCmd.MarkFlagRequired("plan")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("business")
	name, _ := cmd.Flags().GetString("plan")
	until, _ := cmd.Flags().GetString("until")

	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid business id %q: %w", raw, err)
	}

	var end time.Time

	if business.PlanName(name) != business.PlanFree {
		if until == "" {
			return fmt.Errorf("--until is required for paid plans")
		}

		day, err := time.Parse(time.DateOnly, until)
		if err != nil {
			return fmt.Errorf("invalid --until date, use YYYY-MM-DD: %w", err)
		}

		end = day.Add(24*time.Hour - time.Second)
	}

	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	// Plan changes never verify a GSTIN.
	svc := business.NewService(businessStore.New(db), nil)

	b, err := svc.SetPlan(cmd.Context(), id, business.PlanName(name), end)
	if err != nil {
		return err
	}

	slog.Info("plan updated", "business_id", b.ID, "plan", b.Plan.Name, "ends", b.Plan.EndDate)

	return nil
}
