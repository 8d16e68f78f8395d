// AngelaMos | 2026
// dto.go

package usage

import (
	"time"

	"github.com/samber/lo"

	"github.com/taskispace/api/internal/billing"
)

type LimitCheckResponse struct {
	LimitKey billing.LimitKey `json:"limit_key"`
	Allowed  bool             `json:"allowed"`
	Current  int64            `json:"current"`
	Limit    int64            `json:"limit"`
	Reason   string           `json:"reason,omitempty"`
}

type UsageResponse struct {
	TasksCreated        int64 `json:"tasks_created"`
	WorkspacesCreated   int64 `json:"workspaces_created"`
	FriendsCount        int64 `json:"friends_count"`
	NudgesToday         int64 `json:"nudges_today"`
	JarvisConversations int64 `json:"jarvis_conversations"`
	JarvisTokens        int64 `json:"jarvis_tokens"`
}

type SubscriptionUsageResponse struct {
	Subscription billing.SubscriptionResponse `json:"subscription"`
	Usage        UsageResponse                `json:"usage"`
}

type CounterResponse struct {
	Metric      Metric     `json:"metric"`
	Value       int64      `json:"value"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

func ToLimitCheckResponse(key billing.LimitKey, r Result) LimitCheckResponse {
	return LimitCheckResponse{
		LimitKey: key,
		Allowed:  r.Allowed,
		Current:  r.Current,
		Limit:    r.Limit.Raw(),
		Reason:   r.Reason,
	}
}

func ToSubscriptionUsageResponse(s *SubscriptionWithUsage) SubscriptionUsageResponse {
	return SubscriptionUsageResponse{
		Subscription: billing.ToSubscriptionResponse(&billing.SubscriptionWithPlan{
			Subscription: s.Subscription,
			Plan:         s.Plan,
		}),
		Usage: UsageResponse(s.Usage),
	}
}

func ToCounterResponseList(counters []Counter) []CounterResponse {
	return lo.Map(counters, func(c Counter, _ int) CounterResponse {
		return CounterResponse{
			Metric:      c.Metric,
			Value:       c.CurrentValue,
			PeriodStart: c.PeriodStart,
			PeriodEnd:   c.PeriodEnd,
		}
	})
}
