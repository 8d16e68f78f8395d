// AngelaMos | 2026
// repository.go

package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskispace/api/internal/core"
)

type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlanByID(ctx context.Context, id string) (*Plan, error)
	GetPlanByName(ctx context.Context, name string) (*Plan, error)
	GetPlanByPriceID(ctx context.Context, priceID string) (*Plan, error)
	UpdatePlanPriceIDs(ctx context.Context, name, monthly, yearly string) error

	GetSubscriptionByUserID(ctx context.Context, userID string) (*Subscription, error)
	GetSubscriptionByCustomerID(ctx context.Context, customerID string) (*Subscription, error)
	CreateSubscription(ctx context.Context, sub *Subscription) error
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	CountSubscriptionsByPlan(ctx context.Context) (map[string]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const planColumns = `
	id, name, price_monthly, price_yearly, limits,
	stripe_price_id_monthly, stripe_price_id_yearly, is_active,
	created_at, updated_at`

const subscriptionColumns = `
	id, user_id, plan_id, status, stripe_customer_id, stripe_subscription_id,
	current_period_start, current_period_end, cancel_at_period_end,
	canceled_at, created_at, updated_at`

func (r *repository) ListPlans(ctx context.Context) ([]Plan, error) {
	query := `SELECT ` + planColumns + `
		FROM subscription_plans
		WHERE is_active = TRUE
		ORDER BY price_monthly ASC`

	var plans []Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (r *repository) GetPlanByID(ctx context.Context, id string) (*Plan, error) {
	return r.getPlan(ctx, "get plan", `WHERE id = $1`, id)
}

func (r *repository) GetPlanByName(
	ctx context.Context,
	name string,
) (*Plan, error) {
	return r.getPlan(ctx, "get plan by name", `WHERE name = $1`, name)
}

func (r *repository) GetPlanByPriceID(
	ctx context.Context,
	priceID string,
) (*Plan, error) {
	return r.getPlan(ctx, "get plan by price",
		`WHERE stripe_price_id_monthly = $1 OR stripe_price_id_yearly = $1`,
		priceID,
	)
}

func (r *repository) getPlan(
	ctx context.Context,
	op, where string,
	arg any,
) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans ` + where

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &plan, nil
}

func (r *repository) UpdatePlanPriceIDs(
	ctx context.Context,
	name, monthly, yearly string,
) error {
	query := `
		UPDATE subscription_plans
		SET stripe_price_id_monthly = NULLIF($2, ''),
		    stripe_price_id_yearly = NULLIF($3, ''),
		    updated_at = NOW()
		WHERE name = $1`

	result, err := r.db.ExecContext(ctx, query, name, monthly, yearly)
	if err != nil {
		return fmt.Errorf("update plan prices: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan prices: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update plan prices: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) GetSubscriptionByUserID(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	return r.getSubscription(ctx, "get subscription", `WHERE user_id = $1`, userID)
}

func (r *repository) GetSubscriptionByCustomerID(
	ctx context.Context,
	customerID string,
) (*Subscription, error) {
	return r.getSubscription(ctx, "get subscription by customer",
		`WHERE stripe_customer_id = $1`, customerID)
}

func (r *repository) getSubscription(
	ctx context.Context,
	op, where string,
	arg any,
) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ` + where

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// CreateSubscription inserts the row or leaves an existing one untouched. In
// both cases sub is filled from the stored row, which keeps one row per user
// when two requests provision at once.
func (r *repository) CreateSubscription(
	ctx context.Context,
	sub *Subscription,
) error {
	query := `
		WITH inserted AS (
			INSERT INTO subscriptions (user_id, plan_id, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING ` + subscriptionColumns + `
		)
		SELECT ` + subscriptionColumns + ` FROM inserted
		UNION ALL
		SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1
		LIMIT 1`

	if err := r.db.GetContext(ctx, sub, query,
		sub.UserID,
		sub.PlanID,
		sub.Status,
	); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *repository) UpdateSubscription(
	ctx context.Context,
	sub *Subscription,
) error {
	query := `
		UPDATE subscriptions
		SET plan_id = $2,
		    status = $3,
		    stripe_customer_id = $4,
		    stripe_subscription_id = $5,
		    current_period_start = $6,
		    current_period_end = $7,
		    cancel_at_period_end = $8,
		    canceled_at = $9,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &sub.UpdatedAt, query,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.CanceledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

func (r *repository) CountSubscriptionsByPlan(
	ctx context.Context,
) (map[string]int, error) {
	query := `
		SELECT p.name AS name, COUNT(s.id) AS total
		FROM subscription_plans p
		LEFT JOIN subscriptions s ON s.plan_id = p.id
		GROUP BY p.name`

	var rows []struct {
		Name  string `db:"name"`
		Total int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Name] = row.Total
	}
	return counts, nil
}
