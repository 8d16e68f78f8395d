// AngelaMos | 2026
// usage.go

package main

import (
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect and reset usage counters",
}

var usageShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Print a user's usage counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		db, redis, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll(logger, db, redis)

		_, limiter := newBilling(cfg, db, redis, nil, logger)
		counters, err := limiter.ListCounters(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, c := range counters {
			printf(cmd, "%-24s %-8s %d\n", c.Metric, c.PeriodStart.Format("2006-01-02"), c.CurrentValue)
		}
		return nil
	},
}

var usageResetCmd = &cobra.Command{
	Use:   "reset <user-id>",
	Short: "Clear a user's counters for the current period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		db, redis, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll(logger, db, redis)

		_, limiter := newBilling(cfg, db, redis, nil, logger)
		if err := limiter.ResetPeriodicUsage(cmd.Context(), args[0]); err != nil {
			return err
		}
		printf(cmd, "periodic usage reset for %s\n", args[0])
		return nil
	},
}

func init() {
	usageCmd.AddCommand(usageShowCmd, usageResetCmd)
}
