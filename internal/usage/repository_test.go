// AngelaMos | 2026
// repository_test.go

package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/taskispace/api/internal/billing"
)

const testSchema = `
CREATE TABLE subscription_usage (
	user_id       TEXT NOT NULL,
	metric_name   TEXT NOT NULL,
	current_value INTEGER NOT NULL DEFAULT 0 CHECK (current_value >= 0),
	period_start  TIMESTAMP NOT NULL,
	period_end    TIMESTAMP,
	UNIQUE (user_id, metric_name)
)`

func newTestRepo(t *testing.T) Repository {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return NewRepository(db)
}

func TestRepository_GetValueMissingIsZero(t *testing.T) {
	repo := newTestRepo(t)

	v, err := repo.GetValue(context.Background(), "u", MetricTasksCreated, nil)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestRepository_SetReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, Counter{
		UserID: "u", Metric: MetricTasksCreated, CurrentValue: 10, PeriodStart: Epoch,
	}))
	require.NoError(t, repo.Set(ctx, Counter{
		UserID: "u", Metric: MetricTasksCreated, CurrentValue: 3, PeriodStart: Epoch,
	}))

	v, err := repo.GetValue(ctx, "u", MetricTasksCreated, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestRepository_GetValueSinceFiltersOldPeriods(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	september := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	october := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Set(ctx, Counter{
		UserID: "u", Metric: MetricJarvisTokens, CurrentValue: 900, PeriodStart: september,
	}))

	v, err := repo.GetValue(ctx, "u", MetricJarvisTokens, &october)
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = repo.GetValue(ctx, "u", MetricJarvisTokens, &september)
	require.NoError(t, err)
	assert.Equal(t, int64(900), v)
}

func TestRepository_AccumulateWithinCeiling(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	ceiling := int64(3)

	for want := int64(1); want <= 3; want++ {
		v, ok, err := repo.Accumulate(ctx, Counter{
			UserID: "u", Metric: MetricNudgesSent, CurrentValue: 1, PeriodStart: day,
		}, &ceiling)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}

	_, ok, err := repo.Accumulate(ctx, Counter{
		UserID: "u", Metric: MetricNudgesSent, CurrentValue: 1, PeriodStart: day,
	}, &ceiling)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := repo.GetValue(ctx, "u", MetricNudgesSent, &day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestRepository_AccumulateRestartsOnNewPeriod(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	yesterday := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	today := yesterday.AddDate(0, 0, 1)
	ceiling := int64(5)

	_, _, err := repo.Accumulate(ctx, Counter{
		UserID: "u", Metric: MetricNudgesSent, CurrentValue: 5, PeriodStart: yesterday,
	}, &ceiling)
	require.NoError(t, err)

	v, ok, err := repo.Accumulate(ctx, Counter{
		UserID: "u", Metric: MetricNudgesSent, CurrentValue: 1, PeriodStart: today,
	}, &ceiling)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestRepository_AccumulateRejectsOversizedFirstWrite(t *testing.T) {
	repo := newTestRepo(t)
	ceiling := int64(10)

	_, ok, err := repo.Accumulate(context.Background(), Counter{
		UserID: "u", Metric: MetricJarvisTokens, CurrentValue: 11, PeriodStart: Epoch,
	}, &ceiling)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_AccumulateConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	ceiling := int64(5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.Accumulate(ctx, Counter{
				UserID: "u", Metric: MetricNudgesSent, CurrentValue: 1, PeriodStart: day,
			}, &ceiling)
			if err == nil && ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
}

func TestRepository_DeleteMetricsAndExpired(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	monthStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	for _, c := range []Counter{
		{UserID: "u", Metric: MetricTasksCreated, CurrentValue: 4, PeriodStart: Epoch},
		{UserID: "u", Metric: MetricJarvisTokens, CurrentValue: 50, PeriodStart: monthStart, PeriodEnd: &monthEnd},
		{UserID: "u", Metric: MetricJarvisConversations, CurrentValue: 2, PeriodStart: monthStart, PeriodEnd: &monthEnd},
		{UserID: "v", Metric: MetricJarvisTokens, CurrentValue: 7, PeriodStart: monthStart, PeriodEnd: &monthEnd},
	} {
		require.NoError(t, repo.Set(ctx, c))
	}

	n, err := repo.DeleteMetrics(ctx, "u", MetricJarvisTokens, MetricJarvisConversations)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteExpired(ctx, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counters, err := repo.ListByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, counters, 1)
	assert.Equal(t, MetricTasksCreated, counters[0].Metric)
	assert.Equal(t, int64(4), counters[0].CurrentValue)

	remaining, err := repo.ListByUser(ctx, "v")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestLimiter_AgainstSQLite(t *testing.T) {
	repo := newTestRepo(t)
	l := NewLimiter(&stubSubs{plans: map[string]*billing.Plan{"u": freePlan()}}, repo, nil)
	l.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	l.IncrementUsage(ctx, "u", MetricWorkspacesCreated, 3)
	res := l.CheckLimit(ctx, "u", billing.LimitMaxWorkspaces)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), res.Current)

	l.DecrementUsage(ctx, "u", MetricWorkspacesCreated, 1)
	res = l.CheckLimit(ctx, "u", billing.LimitMaxWorkspaces)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(2), res.Current)
}
