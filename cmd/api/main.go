// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskispace/api/internal/config"
	"github.com/taskispace/api/internal/core"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "taskispace",
	Short:         "TaskiSpace API server and maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "config.yaml", "path to config file",
	)
	rootCmd.AddCommand(serveCmd, migrateCmd, keysCmd, plansCmd, usageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and installs the process logger.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// connect opens the database and redis pools used by maintenance commands.
func connect(
	ctx context.Context,
	cfg *config.Config,
) (*core.Database, *core.Redis, error) {
	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		//nolint:errcheck // already failing
		_ = db.Close()
		return nil, nil, err
	}

	return db, redis, nil
}

func closeAll(logger *slog.Logger, db *core.Database, redis *core.Redis) {
	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	//nolint:errcheck // terminal output
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
