// AngelaMos | 2026
// service.go

package workspace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/usage"
)

// Limiter is the slice of the usage limiter that gates workspace writes.
type Limiter interface {
	CheckLimit(ctx context.Context, userID string, key billing.LimitKey) usage.Result
	IncrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64)
	DecrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64)
}

type Service struct {
	repo    Repository
	limiter Limiter
	logger  *slog.Logger
}

func NewService(repo Repository, limiter Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		limiter: limiter,
		logger:  logger,
	}
}

func (s *Service) Create(
	ctx context.Context,
	ownerID string,
	req CreateWorkspaceRequest,
) (*Workspace, error) {
	result := s.limiter.CheckLimit(ctx, ownerID, billing.LimitMaxWorkspaces)
	if !result.Allowed {
		return nil, result.Err()
	}

	w := &Workspace{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}

	s.recordCount(ctx, ownerID)

	return w, nil
}

// recordCount stores the owner's workspace total on the counter. The counter
// write replaces, so it is handed the full count rather than a delta.
func (s *Service) recordCount(ctx context.Context, ownerID string) {
	n, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Warn("workspace count failed", "user_id", ownerID, "error", err)
		return
	}
	s.limiter.IncrementUsage(ctx, ownerID, usage.MetricWorkspacesCreated, n)
}

// Get returns the workspace when userID owns it. Other users see not found.
func (s *Service) Get(ctx context.Context, userID, id string) (*Workspace, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.OwnedBy(userID) {
		return nil, fmt.Errorf("get workspace: %w", core.ErrNotFound)
	}
	return w, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Workspace, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *Service) Update(
	ctx context.Context,
	userID, id string,
	req UpdateWorkspaceRequest,
) (*Workspace, error) {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		w.Name = *req.Name
	}
	if req.Description != nil {
		w.Description = *req.Description
	}
	if req.Color != nil {
		w.Color = *req.Color
	}

	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

// Delete removes the workspace with its tasks and frees the quota both
// consumed.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	removal, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}

	s.limiter.DecrementUsage(ctx, userID, usage.MetricWorkspacesCreated, 1)
	if removal.TaskCount > 0 {
		s.limiter.DecrementUsage(ctx, userID, usage.MetricTasksCreated, removal.TaskCount)
	}

	s.logger.Info("workspace deleted",
		"user_id", userID,
		"workspace_id", id,
		"tasks", removal.TaskCount,
	)
	return nil
}
