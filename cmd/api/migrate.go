// AngelaMos | 2026
// migrate.go

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/migrations"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd.Context(), func(db *core.Database) error {
			n, err := migrations.Up(db.DB.DB)
			if err != nil {
				return err
			}
			printf(cmd, "applied %d migration(s)\n", n)
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd.Context(), func(db *core.Database) error {
			n, err := migrations.Down(db.DB.DB, migrateSteps)
			if err != nil {
				return err
			}
			printf(cmd, "rolled back %d migration(s)\n", n)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations that have not been applied",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd.Context(), func(db *core.Database) error {
			pending, err := migrations.Pending(db.DB.DB)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				printf(cmd, "schema is up to date\n")
				return nil
			}
			printf(cmd, "%d pending: %s\n", len(pending), strings.Join(pending, ", "))
			return nil
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back, 0 for all")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func withDatabase(ctx context.Context, fn func(db *core.Database) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	return fn(db)
}
