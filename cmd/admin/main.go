package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/invisifeed/invisifeed/internal/config"
	"github.com/invisifeed/invisifeed/internal/database"
)

var rootCmd = &cobra.Command{
	Use:   "invisifeed-admin",
	Short: "Operator tasks for an InvisiFeed deployment",
	Long: `invisifeed-admin runs maintenance against the InvisiFeed database and
object storage: schema migrations, per-business resets, plan changes and
periodic sweeps.

Configuration is read from the environment (and a .env file when present),
the same way the API server reads it.`,
	SilenceUsage: true,
}

var cfg *config.Config

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()

		return err
	}
}

func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
