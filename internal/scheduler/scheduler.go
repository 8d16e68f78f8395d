// AngelaMos | 2026
// scheduler.go

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/taskispace/api/internal/core"
)

const defaultJobTimeout = 5 * time.Minute

// JobFunc does one pass of housekeeping and reports how many rows it touched.
type JobFunc func(ctx context.Context) (int64, error)

type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]JobFunc
	timeout time.Duration
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	cl := cronLogger{logger: logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:    make(map[string]JobFunc),
		timeout: defaultJobTimeout,
		logger:  logger,
	}
}

// Add registers fn under a standard five field cron spec or a descriptor
// such as "@hourly". Names must be unique.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	if _, err := s.cron.AddFunc(spec, func() { s.run(name) }); err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}

	s.jobs[name] = fn
	s.logger.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// RunNow executes a registered job immediately on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int64, error) {
	fn, ok := s.jobs[name]
	if !ok {
		return 0, fmt.Errorf("job %q: %w", name, core.ErrNotFound)
	}
	return fn(ctx)
}

func (s *Scheduler) run(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ctx, span := core.StartSpan(ctx, "scheduler."+name, attribute.String("job.name", name))
	defer span.End()

	start := time.Now()
	n, err := s.jobs[name](ctx)
	if err != nil {
		core.SetSpanError(ctx, err)
		s.logger.Error("job failed",
			"job", name,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}

	span.SetAttributes(attribute.Int64("job.affected", n))
	s.logger.Info("job finished",
		"job", name,
		"affected", n,
		"duration", time.Since(start),
	)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
