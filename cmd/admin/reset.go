package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/invisifeed/invisifeed/internal/business"
	businessStore "github.com/invisifeed/invisifeed/internal/business/store"
	"github.com/invisifeed/invisifeed/internal/invoice"
	invoiceStore "github.com/invisifeed/invisifeed/internal/invoice/store"
	"github.com/invisifeed/invisifeed/internal/metrics"
	"github.com/invisifeed/invisifeed/internal/storage"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every invoice, coupon and feedback of one business",
	Long: `reset removes the business's invoices, coupons and feedback, zeroes its
upload counter and deletes the stored PDFs. The account and profile stay.`,
	Example: `  invisifeed-admin reset --business 4f6c2a9e-1b7d-4f0a-9a43-0c2f1d9e8b11 --yes`,
	RunE:    runReset,
}

func init() {
	resetCmd.Flags().String("business", "", "Business ID")
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
	_ = resetCmd.MarkFlagRequired("business")

	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("business")
	confirmed, _ := cmd.Flags().GetBool("yes")

	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid business id %q: %w", raw, err)
	}

	if !confirmed {
		return fmt.Errorf("reset deletes data permanently; pass --yes to confirm")
	}

	ctx := cmd.Context()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	objects, err := storage.New(ctx, storage.Config{
		Endpoint:     cfg.Storage.Endpoint,
		Region:       cfg.Storage.Region,
		Bucket:       cfg.Storage.Bucket,
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		UsePathStyle: cfg.Storage.UsePathStyle,
		PublicURL:    cfg.Storage.PublicURL,
	})
	if err != nil {
		return err
	}

	var cache metrics.Cache = metrics.NopCache{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()

		cache = metrics.NewRedisCache(client, cfg.Redis.MetricsTTL)
	}

	svc := invoice.NewService(invoiceStore.New(db), businessStore.New(db), nil, objects, nil, cache, invoice.Options{
		Limits: business.DefaultLimits(),
	})

	if err := svc.Reset(ctx, id); err != nil {
		return err
	}

	slog.Info("business reset", "business_id", id)

	return nil
}
