package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/invisifeed/invisifeed/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migrate.Migrate) error {
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Example: `  # Roll back the latest migration
  invisifeed-admin migrate down

  # Roll back three
  invisifeed-admin migrate down --steps 3`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps <= 0 {
			return fmt.Errorf("steps must be positive")
		}

		return withMigrator(cmd, func(m *migrate.Migrate) error {
			return m.Steps(-steps)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				cmd.Println("no migrations applied")
				return nil
			}

			if err != nil {
				return err
			}

			cmd.Printf("version %d (dirty: %t)\n", version, dirty)

			return nil
		})
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withMigrator(cmd *cobra.Command, fn func(*migrate.Migrate) error) error {
	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := database.NewMigrator(db)
	if err != nil {
		return err
	}

	if err := fn(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("schema already up to date")
			return nil
		}

		return fmt.Errorf("running migration: %w", err)
	}

	slog.Info("migration finished", "command", cmd.Name())

	return nil
}
