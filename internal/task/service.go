// AngelaMos | 2026
// service.go

package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/usage"
	"github.com/taskispace/api/internal/workspace"
)

type Limiter interface {
	CheckLimit(ctx context.Context, userID string, key billing.LimitKey) usage.Result
	IncrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64)
	DecrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64)
}

// Workspaces resolves a workspace the caller owns, reporting
// core.ErrNotFound otherwise.
type Workspaces interface {
	Get(ctx context.Context, userID, id string) (*workspace.Workspace, error)
}

type Service struct {
	repo       Repository
	workspaces Workspaces
	limiter    Limiter
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(
	repo Repository,
	workspaces Workspaces,
	limiter Limiter,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		workspaces: workspaces,
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) Create(
	ctx context.Context,
	ownerID string,
	in CreateInput,
) (*Task, error) {
	if _, err := s.workspaces.Get(ctx, ownerID, in.WorkspaceID); err != nil {
		return nil, err
	}

	result := s.limiter.CheckLimit(ctx, ownerID, billing.LimitMaxTasks)
	if !result.Allowed {
		return nil, result.Err()
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	t := &Task{
		ID:          uuid.New().String(),
		WorkspaceID: in.WorkspaceID,
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Status:      StatusTodo,
		Priority:    priority,
		DueDate:     in.DueDate,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.recordCount(ctx, ownerID)

	return t, nil
}

func (s *Service) recordCount(ctx context.Context, ownerID string) {
	n, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Warn("task count failed", "user_id", ownerID, "error", err)
		return
	}
	s.limiter.IncrementUsage(ctx, ownerID, usage.MetricTasksCreated, n)
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != userID {
		return nil, fmt.Errorf("get task: %w", core.ErrNotFound)
	}
	return t, nil
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	params ListTasksParams,
) ([]Task, int, error) {
	if _, err := s.workspaces.Get(ctx, userID, params.WorkspaceID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	userID, id string,
	req UpdateTaskRequest,
) (*Task, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.Status != nil && *req.Status != t.Status {
		t.Status = *req.Status
		if t.IsDone() {
			now := s.now().UTC()
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.limiter.DecrementUsage(ctx, userID, usage.MetricTasksCreated, 1)
	return nil
}
