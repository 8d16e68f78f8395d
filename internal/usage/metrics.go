// AngelaMos | 2026
// metrics.go

package usage

import (
	"strings"
	"time"

	"github.com/taskispace/api/internal/billing"
)

type Metric string

const (
	MetricTasksCreated        Metric = "tasks_created"
	MetricWorkspacesCreated   Metric = "workspaces_created"
	MetricFriendsCount        Metric = "friends_count"
	MetricNudgesSent          Metric = "nudges_sent"
	MetricJarvisConversations Metric = "jarvis_conversations"
	MetricJarvisTokens        Metric = "jarvis_tokens"
)

// periodicMetrics are the counters cleared when a billing period is paid.
var periodicMetrics = []Metric{
	MetricJarvisConversations,
	MetricJarvisTokens,
}

var limitMetrics = map[billing.LimitKey]Metric{
	billing.LimitMaxTasks:                    MetricTasksCreated,
	billing.LimitMaxWorkspaces:               MetricWorkspacesCreated,
	billing.LimitMaxFriends:                  MetricFriendsCount,
	billing.LimitMaxNudgesPerDay:             MetricNudgesSent,
	billing.LimitJarvisConversationsPerMonth: MetricJarvisConversations,
	billing.LimitJarvisTokensPerMonth:        MetricJarvisTokens,
}

// MetricForLimit returns the counter behind a limit key. Property keys such
// as conversationHistoryDays have none.
func MetricForLimit(key billing.LimitKey) (Metric, bool) {
	m, ok := limitMetrics[key]
	return m, ok
}

func IsPropertyKey(key billing.LimitKey) bool {
	return key == billing.LimitConversationHistoryDays ||
		key == billing.LimitMaxFileSize
}

type Period int

const (
	PeriodPermanent Period = iota
	PeriodDaily
	PeriodMonthly
)

// Epoch is the period start stored on counters that never reset.
var Epoch = time.Unix(0, 0).UTC()

// PeriodForLimit classifies a limit key by name.
func PeriodForLimit(key billing.LimitKey) Period {
	name := string(key)
	switch {
	case strings.Contains(name, "PerMonth"):
		return PeriodMonthly
	case strings.Contains(name, "PerDay"):
		return PeriodDaily
	default:
		return PeriodPermanent
	}
}

// PeriodForMetric classifies a counter by name. Monthly wins over daily.
func PeriodForMetric(m Metric) Period {
	name := strings.ToLower(string(m))
	switch {
	case strings.Contains(name, "month"), strings.Contains(name, "jarvis"):
		return PeriodMonthly
	case strings.Contains(name, "day"), strings.Contains(name, "nudges"):
		return PeriodDaily
	default:
		return PeriodPermanent
	}
}

// Bounds returns the UTC window containing now. Permanent counters start at
// Epoch and have no end.
func (p Period) Bounds(now time.Time) (time.Time, *time.Time) {
	now = now.UTC()
	switch p {
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		return start, &end
	case PeriodDaily:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 1)
		return start, &end
	default:
		return Epoch, nil
	}
}

// Since is the read filter for the window containing now, nil when counters
// in this period are read without a filter.
func (p Period) Since(now time.Time) *time.Time {
	if p == PeriodPermanent {
		return nil
	}
	start, _ := p.Bounds(now)
	return &start
}

func (p Period) String() string {
	switch p {
	case PeriodMonthly:
		return "month"
	case PeriodDaily:
		return "day"
	default:
		return "permanent"
	}
}
