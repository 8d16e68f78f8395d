// AngelaMos | 2026
// jobs.go

package scheduler

import (
	"context"

	"github.com/taskispace/api/internal/config"
)

const (
	JobRefreshTokenCleanup = "refresh_token_cleanup"
	JobUsageCleanup        = "usage_cleanup"
)

type RefreshTokenPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type UsagePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RegisterHousekeeping schedules expired refresh token removal and the
// purge of usage counters whose period has closed.
func RegisterHousekeeping(
	s *Scheduler,
	cfg config.SchedulerConfig,
	tokens RefreshTokenPurger,
	usage UsagePurger,
) error {
	if err := s.Add(JobRefreshTokenCleanup, cfg.TokenCleanupSpec, tokens.DeleteExpired); err != nil {
		return err
	}
	return s.Add(JobUsageCleanup, cfg.UsageCleanupSpec, usage.PurgeExpired)
}
