// AngelaMos | 2026
// plans.go

package main

import (
	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Inspect and maintain subscription plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the configured plans and their limits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		db, redis, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll(logger, db, redis)

		billingSvc, _ := newBilling(cfg, db, redis, nil, logger)
		plans, err := billingSvc.ListPlans(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range plans {
			printf(cmd, "%-6s %s/month  %d limits\n", p.Name, p.PriceMonthly.StringFixed(2), len(p.Limits))
		}
		return nil
	},
}

var plansSyncCmd = &cobra.Command{
	Use:   "sync-prices",
	Short: "Copy the configured Stripe price ids onto the pro plan",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		db, redis, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeAll(logger, db, redis)

		billingSvc, _ := newBilling(cfg, db, redis, nil, logger)
		if err := billingSvc.SyncPrices(cmd.Context()); err != nil {
			return err
		}
		printf(cmd, "pro plan prices updated\n")
		return nil
	},
}

func init() {
	plansCmd.AddCommand(plansListCmd, plansSyncCmd)
}
