// AngelaMos | 2026
// scheduler_test.go

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskispace/api/internal/config"
	"github.com/taskispace/api/internal/core"
)

type countingPurger struct {
	calls atomic.Int64
	n     int64
	err   error
}

func (p *countingPurger) DeleteExpired(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return p.n, p.err
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int64, error) {
	return p.DeleteExpired(ctx)
}

func TestAdd_RejectsBadSpec(t *testing.T) {
	s := New(nil)

	err := s.Add("broken", "every tuesday", func(ctx context.Context) (int64, error) {
		return 0, nil
	})
	assert.Error(t, err)
}

func TestAdd_RejectsDuplicateName(t *testing.T) {
	s := New(nil)
	noop := func(ctx context.Context) (int64, error) { return 0, nil }

	require.NoError(t, s.Add("job", "@hourly", noop))
	assert.Error(t, s.Add("job", "@daily", noop))
}

func TestRunNow(t *testing.T) {
	s := New(nil)
	tokens := &countingPurger{n: 7}
	usage := &countingPurger{n: 3}

	require.NoError(t, RegisterHousekeeping(s, config.SchedulerConfig{
		TokenCleanupSpec: "0 3 * * *",
		UsageCleanupSpec: "@hourly",
	}, tokens, usage))

	n, err := s.RunNow(context.Background(), JobRefreshTokenCleanup)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = s.RunNow(context.Background(), JobUsageCleanup)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRun_FailureDoesNotPanic(t *testing.T) {
	s := New(nil)
	p := &countingPurger{err: errors.New("db down")}
	require.NoError(t, s.Add("failing", "@hourly", p.DeleteExpired))

	assert.NotPanics(t, func() { s.run("failing") })
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestStartStop_RunsOnSchedule(t *testing.T) {
	s := New(nil)
	p := &countingPurger{}
	require.NoError(t, s.Add("tick", "@every 1s", p.DeleteExpired))

	s.Start()
	assert.Eventually(t, func() bool {
		return p.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
