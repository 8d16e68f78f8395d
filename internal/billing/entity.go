// AngelaMos | 2026
// entity.go

package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

const (
	StatusActive     = "active"
	StatusTrialing   = "trialing"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
)

const (
	IntervalMonthly = "monthly"
	IntervalYearly  = "yearly"
)

type Plan struct {
	ID                   string          `db:"id"`
	Name                 string          `db:"name"`
	PriceMonthly         decimal.Decimal `db:"price_monthly"`
	PriceYearly          decimal.Decimal `db:"price_yearly"`
	Limits               Limits          `db:"limits"`
	StripePriceIDMonthly *string         `db:"stripe_price_id_monthly"`
	StripePriceIDYearly  *string         `db:"stripe_price_id_yearly"`
	IsActive             bool            `db:"is_active"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func (p *Plan) IsFree() bool {
	return p.Name == PlanFree
}

// YearlySavings is what a yearly subscriber saves over twelve monthly
// payments.
func (p *Plan) YearlySavings() decimal.Decimal {
	savings := p.PriceMonthly.Mul(decimal.NewFromInt(12)).Sub(p.PriceYearly)
	if savings.IsNegative() {
		return decimal.Zero
	}
	return savings
}

// PriceIDFor returns the Stripe price id for a billing interval.
func (p *Plan) PriceIDFor(interval string) string {
	var id *string
	switch interval {
	case IntervalMonthly:
		id = p.StripePriceIDMonthly
	case IntervalYearly:
		id = p.StripePriceIDYearly
	}
	if id == nil {
		return ""
	}
	return *id
}

type Subscription struct {
	ID                   string     `db:"id"`
	UserID               string     `db:"user_id"`
	PlanID               string     `db:"plan_id"`
	Status               string     `db:"status"`
	StripeCustomerID     *string    `db:"stripe_customer_id"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id"`
	CurrentPeriodStart   *time.Time `db:"current_period_start"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end"`
	CanceledAt           *time.Time `db:"canceled_at"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

func (s *Subscription) CustomerID() string {
	if s.StripeCustomerID == nil {
		return ""
	}
	return *s.StripeCustomerID
}

// SubscriptionWithPlan is the pairing every quota decision starts from.
type SubscriptionWithPlan struct {
	Subscription *Subscription
	Plan         *Plan
}
