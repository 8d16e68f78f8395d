// AngelaMos | 2026
// limiter.go

package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
)

const (
	reasonNoSubscription = "no active subscription"
	reasonUnverifiable   = "unable to verify plan limits, try again shortly"
)

// SubscriptionSource resolves the plan a user is on right now. It reports
// core.ErrNotFound when the user has no subscription.
type SubscriptionSource interface {
	GetSubscriptionWithPlan(ctx context.Context, userID string) (*billing.SubscriptionWithPlan, error)
}

type Result struct {
	Allowed bool
	Current int64
	Limit   billing.Limit
	Reason  string
}

// Err renders a denial for handlers. It is nil when the result allows the
// action.
func (r Result) Err() error {
	if r.Allowed {
		return nil
	}
	return core.LimitReachedError(r.Reason, r.Current, r.Limit.Raw())
}

func denied(current int64, limit billing.Limit, reason string) Result {
	return Result{Current: current, Limit: limit, Reason: reason}
}

// Limiter meters per-user counters against the limits of the user's plan.
// Check then increment is a soft limit: concurrent callers may overshoot by
// the number of racing requests. Consume is the strict alternative.
type Limiter struct {
	subs   SubscriptionSource
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewLimiter(subs SubscriptionSource, repo Repository, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		subs:   subs,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// resolve returns the plan limit for key or a denial explaining why none
// could be read.
func (l *Limiter) resolve(
	ctx context.Context,
	userID string,
	key billing.LimitKey,
) (billing.Limit, *Result) {
	sp, err := l.subs.GetSubscriptionWithPlan(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		res := denied(0, billing.Bounded(0), reasonNoSubscription)
		return billing.Limit{}, &res
	}
	if err != nil {
		l.logger.Error("subscription lookup failed",
			"user_id", userID,
			"limit_key", key,
			"error", err,
		)
		res := denied(0, billing.Bounded(0), reasonUnverifiable)
		return billing.Limit{}, &res
	}
	return sp.Plan.Limits.Get(key), nil
}

// CheckLimit reports whether userID may perform one more action counted by
// key. It never writes.
func (l *Limiter) CheckLimit(
	ctx context.Context,
	userID string,
	key billing.LimitKey,
) Result {
	ctx, span := core.StartSpan(ctx, "usage.CheckLimit",
		attribute.String("user.id", userID),
		attribute.String("limit.key", string(key)),
	)
	defer span.End()

	limit, deny := l.resolve(ctx, userID, key)
	if deny != nil {
		span.SetAttributes(attribute.Bool("limit.allowed", false))
		return *deny
	}

	if limit.IsUnlimited() {
		return Result{Allowed: true, Limit: limit}
	}

	if IsPropertyKey(key) {
		return Result{Allowed: true, Limit: limit}
	}

	metric, ok := MetricForLimit(key)
	if !ok {
		return denied(0, limit, fmt.Sprintf("unknown limit %q", key))
	}

	since := PeriodForLimit(key).Since(l.now())
	current, err := l.repo.GetValue(ctx, userID, metric, since)
	if err != nil {
		l.logger.Error("usage read failed",
			"user_id", userID,
			"metric", metric,
			"error", err,
		)
		core.SetSpanError(ctx, err)
		return denied(0, limit, reasonUnverifiable)
	}

	allowed := limit.Allows(current)
	span.SetAttributes(
		attribute.Int64("limit.current", current),
		attribute.Bool("limit.allowed", allowed),
	)

	if !allowed {
		return denied(current, limit, limitReason(key, limit))
	}
	return Result{Allowed: true, Current: current, Limit: limit}
}

func limitReason(key billing.LimitKey, limit billing.Limit) string {
	return fmt.Sprintf(
		"You've reached your %s limit of %s. Upgrade to Pro for more.",
		key,
		limit,
	)
}

// IncrementUsage records amount against metric for the window containing
// now. The stored value is replaced with amount rather than added to.
// Failures are logged and never reach the caller.
func (l *Limiter) IncrementUsage(
	ctx context.Context,
	userID string,
	metric Metric,
	amount int64,
) {
	if amount < 0 {
		l.logger.Warn("negative usage increment ignored",
			"user_id", userID,
			"metric", metric,
			"amount", amount,
		)
		return
	}

	start, end := PeriodForMetric(metric).Bounds(l.now())
	err := l.repo.Set(ctx, Counter{
		UserID:       userID,
		Metric:       metric,
		CurrentValue: amount,
		PeriodStart:  start,
		PeriodEnd:    end,
	})
	if err != nil {
		l.logger.Error("usage increment failed",
			"user_id", userID,
			"metric", metric,
			"error", err,
		)
	}
}

// DecrementUsage lowers the counter by amount, flooring at zero.
func (l *Limiter) DecrementUsage(
	ctx context.Context,
	userID string,
	metric Metric,
	amount int64,
) {
	if amount <= 0 {
		l.logger.Warn("non-positive usage decrement ignored",
			"user_id", userID,
			"metric", metric,
			"amount", amount,
		)
		return
	}

	period := PeriodForMetric(metric)
	now := l.now()

	current, err := l.repo.GetValue(ctx, userID, metric, period.Since(now))
	if err != nil {
		l.logger.Error("usage read failed",
			"user_id", userID,
			"metric", metric,
			"error", err,
		)
		return
	}

	next := max(current-amount, 0)
	if next == current {
		return
	}

	start, end := period.Bounds(now)
	err = l.repo.Set(ctx, Counter{
		UserID:       userID,
		Metric:       metric,
		CurrentValue: next,
		PeriodStart:  start,
		PeriodEnd:    end,
	})
	if err != nil {
		l.logger.Error("usage decrement failed",
			"user_id", userID,
			"metric", metric,
			"error", err,
		)
	}
}

// Consume atomically adds amount to the counter behind key, but only when
// the result stays within the limit. Unlimited keys accumulate without a
// ceiling.
func (l *Limiter) Consume(
	ctx context.Context,
	userID string,
	key billing.LimitKey,
	amount int64,
) Result {
	ctx, span := core.StartSpan(ctx, "usage.Consume",
		attribute.String("user.id", userID),
		attribute.String("limit.key", string(key)),
		attribute.Int64("amount", amount),
	)
	defer span.End()

	limit, deny := l.resolve(ctx, userID, key)
	if deny != nil {
		return *deny
	}

	metric, ok := MetricForLimit(key)
	if !ok || amount < 0 {
		return denied(0, limit, fmt.Sprintf("limit %q cannot be consumed", key))
	}

	period := PeriodForMetric(metric)
	now := l.now()
	start, end := period.Bounds(now)

	var ceiling *int64
	if n, bounded := limit.Max(); bounded {
		ceiling = &n
	}

	value, ok, err := l.repo.Accumulate(ctx, Counter{
		UserID:       userID,
		Metric:       metric,
		CurrentValue: amount,
		PeriodStart:  start,
		PeriodEnd:    end,
	}, ceiling)
	if err != nil {
		l.logger.Error("usage consume failed",
			"user_id", userID,
			"metric", metric,
			"error", err,
		)
		core.SetSpanError(ctx, err)
		return denied(0, limit, reasonUnverifiable)
	}

	if !ok {
		current, readErr := l.repo.GetValue(ctx, userID, metric, period.Since(now))
		if readErr != nil {
			l.logger.Warn("usage read failed",
				"user_id", userID,
				"metric", metric,
				"error", readErr,
			)
		}
		return denied(current, limit, limitReason(key, limit))
	}

	return Result{Allowed: true, Current: value, Limit: limit}
}

// Record adds amount to the metric's counter for the current window without
// a ceiling. Metered consumption whose size is only known afterwards, such
// as model tokens, goes through here. Failures are logged.
func (l *Limiter) Record(
	ctx context.Context,
	userID string,
	metric Metric,
	amount int64,
) {
	if amount <= 0 {
		return
	}

	start, end := PeriodForMetric(metric).Bounds(l.now())
	_, _, err := l.repo.Accumulate(ctx, Counter{
		UserID:       userID,
		Metric:       metric,
		CurrentValue: amount,
		PeriodStart:  start,
		PeriodEnd:    end,
	}, nil)
	if err != nil {
		l.logger.Error("usage record failed",
			"user_id", userID,
			"metric", metric,
			"error", err,
		)
	}
}

// ResolveLimit returns the plan value for a key. Users without a readable
// subscription get Bounded(0).
func (l *Limiter) ResolveLimit(
	ctx context.Context,
	userID string,
	key billing.LimitKey,
) billing.Limit {
	limit, deny := l.resolve(ctx, userID, key)
	if deny != nil {
		return billing.Bounded(0)
	}
	return limit
}

// ResetPeriodicUsage clears the monthly metered counters for userID.
func (l *Limiter) ResetPeriodicUsage(ctx context.Context, userID string) error {
	n, err := l.repo.DeleteMetrics(ctx, userID, periodicMetrics...)
	if err != nil {
		return fmt.Errorf("reset periodic usage: %w", err)
	}

	l.logger.Info("periodic usage reset", "user_id", userID, "rows", n)
	return nil
}

// PurgeExpired drops periodic counters whose window ended before now.
func (l *Limiter) PurgeExpired(ctx context.Context) (int64, error) {
	return l.repo.DeleteExpired(ctx, l.now().UTC())
}

func (l *Limiter) ListCounters(ctx context.Context, userID string) ([]Counter, error) {
	return l.repo.ListByUser(ctx, userID)
}

type Usage struct {
	TasksCreated        int64
	WorkspacesCreated   int64
	FriendsCount        int64
	NudgesToday         int64
	JarvisConversations int64
	JarvisTokens        int64
}

type SubscriptionWithUsage struct {
	Subscription *billing.Subscription
	Plan         *billing.Plan
	Usage        Usage
}

// GetUserSubscriptionWithUsage returns nil without error when the user has
// no subscription or the plan store cannot be read. Counter read failures
// show as zero.
func (l *Limiter) GetUserSubscriptionWithUsage(
	ctx context.Context,
	userID string,
) (*SubscriptionWithUsage, error) {
	ctx, span := core.StartSpan(ctx, "usage.GetUserSubscriptionWithUsage",
		attribute.String("user.id", userID),
	)
	defer span.End()

	sp, err := l.subs.GetSubscriptionWithPlan(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		core.SetSpanError(ctx, err)
		l.logger.Error("subscription read failed",
			"user_id", userID,
			"error", err,
		)
		return nil, nil
	}

	now := l.now()
	out := &SubscriptionWithUsage{
		Subscription: sp.Subscription,
		Plan:         sp.Plan,
	}

	reads := []struct {
		metric Metric
		dest   *int64
	}{
		{MetricTasksCreated, &out.Usage.TasksCreated},
		{MetricWorkspacesCreated, &out.Usage.WorkspacesCreated},
		{MetricFriendsCount, &out.Usage.FriendsCount},
		{MetricNudgesSent, &out.Usage.NudgesToday},
		{MetricJarvisConversations, &out.Usage.JarvisConversations},
		{MetricJarvisTokens, &out.Usage.JarvisTokens},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, read := range reads {
		g.Go(func() error {
			since := PeriodForMetric(read.metric).Since(now)
			value, err := l.repo.GetValue(gctx, userID, read.metric, since)
			if err != nil {
				l.logger.Warn("usage read failed",
					"user_id", userID,
					"metric", read.metric,
					"error", err,
				)
				return nil
			}
			*read.dest = value
			return nil
		})
	}
	//nolint:errcheck // reads never return errors
	_ = g.Wait()

	return out, nil
}
