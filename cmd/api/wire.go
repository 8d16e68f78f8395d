// AngelaMos | 2026
// wire.go

package main

import (
	"log/slog"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/config"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/events"
	"github.com/taskispace/api/internal/usage"
)

// newBilling builds the plan and subscription service along with the usage
// limiter that reads plans through it.
func newBilling(
	cfg *config.Config,
	db *core.Database,
	redis *core.Redis,
	bus *events.Bus,
	logger *slog.Logger,
) (*billing.Service, *usage.Limiter) {
	var payments billing.PaymentProvider
	if cfg.Billing.StripeEnabled() {
		payments = billing.NewStripeProvider(
			cfg.Billing.StripeSecretKey,
			cfg.Billing.StripeWebhookSecret,
		)
	} else {
		logger.Info("stripe not configured, checkout disabled")
	}

	billingSvc := billing.NewService(
		billing.NewRepository(db.DB),
		billing.NewRedisPlanCache(redis, cfg.Billing.PlanCacheTTL),
		payments,
		bus,
		cfg.Billing,
		logger,
	)

	limiter := usage.NewLimiter(billingSvc, usage.NewRepository(db.DB), logger)
	billingSvc.SetUsageResetter(limiter)

	return billingSvc, limiter
}
