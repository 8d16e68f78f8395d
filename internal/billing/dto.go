// AngelaMos | 2026
// dto.go

package billing

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	Interval string `json:"interval" validate:"required,oneof=monthly yearly"`
}

type AssignPlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=free pro"`
}

type URLResponse struct {
	URL string `json:"url"`
}

type PlanResponse struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	PriceMonthly  decimal.Decimal    `json:"price_monthly"`
	PriceYearly   decimal.Decimal    `json:"price_yearly"`
	YearlySavings decimal.Decimal    `json:"yearly_savings"`
	Limits        map[LimitKey]int64 `json:"limits"`
}

type SubscriptionResponse struct {
	Plan               PlanResponse `json:"plan"`
	Status             string       `json:"status"`
	CurrentPeriodStart *time.Time   `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time   `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool         `json:"cancel_at_period_end"`
	CanceledAt         *time.Time   `json:"canceled_at,omitempty"`
	HasBillingAccount  bool         `json:"has_billing_account"`
}

func ToPlanResponse(p *Plan) PlanResponse {
	return PlanResponse{
		ID:            p.ID,
		Name:          p.Name,
		PriceMonthly:  p.PriceMonthly,
		PriceYearly:   p.PriceYearly,
		YearlySavings: p.YearlySavings(),
		Limits:        p.Limits.Raw(),
	}
}

func ToPlanResponseList(plans []Plan) []PlanResponse {
	return lo.Map(plans, func(p Plan, _ int) PlanResponse {
		return ToPlanResponse(&p)
	})
}

func ToSubscriptionResponse(sp *SubscriptionWithPlan) SubscriptionResponse {
	sub := sp.Subscription
	return SubscriptionResponse{
		Plan:               ToPlanResponse(sp.Plan),
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         sub.CanceledAt,
		HasBillingAccount:  sub.CustomerID() != "",
	}
}
