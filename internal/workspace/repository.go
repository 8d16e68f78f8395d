// AngelaMos | 2026
// repository.go

package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskispace/api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, w *Workspace) error
	GetByID(ctx context.Context, id string) (*Workspace, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Workspace, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	Update(ctx context.Context, w *Workspace) error
	Delete(ctx context.Context, id, ownerID string) (Removal, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, w *Workspace) error {
	query := `
		INSERT INTO workspaces (id, owner_id, name, description, color)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, w, query,
		w.ID,
		w.OwnerID,
		w.Name,
		w.Description,
		w.Color,
	)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Workspace, error) {
	query := `
		SELECT id, owner_id, name, description, color, created_at, updated_at
		FROM workspaces
		WHERE id = $1`

	var w Workspace
	err := r.db.GetContext(ctx, &w, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get workspace: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}

	return &w, nil
}

func (r *repository) ListByOwner(
	ctx context.Context,
	ownerID string,
) ([]Workspace, error) {
	query := `
		SELECT id, owner_id, name, description, color, created_at, updated_at
		FROM workspaces
		WHERE owner_id = $1
		ORDER BY updated_at DESC`

	var workspaces []Workspace
	if err := r.db.SelectContext(ctx, &workspaces, query, ownerID); err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}

	return workspaces, nil
}

func (r *repository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT COUNT(*) FROM workspaces WHERE owner_id = $1`

	var n int64
	if err := r.db.GetContext(ctx, &n, query, ownerID); err != nil {
		return 0, fmt.Errorf("count workspaces: %w", err)
	}

	return n, nil
}

func (r *repository) Update(ctx context.Context, w *Workspace) error {
	query := `
		UPDATE workspaces
		SET name = $2, description = $3, color = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &w.UpdatedAt, query,
		w.ID,
		w.Name,
		w.Description,
		w.Color,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update workspace: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}

	return nil
}

// Delete removes the workspace and, by cascade, its tasks. The task count is
// read from the pre-delete snapshot of the same statement.
func (r *repository) Delete(
	ctx context.Context,
	id, ownerID string,
) (Removal, error) {
	query := `
		WITH target AS (
			SELECT id FROM workspaces WHERE id = $1 AND owner_id = $2
		), removed AS (
			DELETE FROM workspaces WHERE id IN (SELECT id FROM target)
			RETURNING id
		)
		SELECT
			(SELECT COUNT(*) FROM removed) AS removed,
			(SELECT COUNT(*) FROM tasks
			 WHERE workspace_id IN (SELECT id FROM target)) AS task_count`

	var out Removal
	if err := r.db.GetContext(ctx, &out, query, id, ownerID); err != nil {
		return Removal{}, fmt.Errorf("delete workspace: %w", err)
	}
	if out.Removed == 0 {
		return Removal{}, fmt.Errorf("delete workspace: %w", core.ErrNotFound)
	}

	return out, nil
}
