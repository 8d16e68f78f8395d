// AngelaMos | 2026
// repository.go

package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/taskispace/api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, params ListTasksParams) ([]Task, int, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id, ownerID string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const taskColumns = `
	id, workspace_id, owner_id, title, description, status, priority,
	due_date, completed_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (id, workspace_id, owner_id, title, description,
		                   status, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, t, query,
		t.ID,
		t.WorkspaceID,
		t.OwnerID,
		t.Title,
		t.Description,
		t.Status,
		t.Priority,
		t.DueDate,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var t Task
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	return &t, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListTasksParams,
) ([]Task, int, error) {
	page := params.Page.Clamp(defaultTaskPage, maxTaskPage)

	conditions := []string{"workspace_id = $1"}
	args := []any{params.WorkspaceID}
	argIdx := 2

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM tasks WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY (status = 'done'), due_date NULLS LAST, created_at DESC
		LIMIT $%d OFFSET $%d`,
		taskColumns, whereClause, argIdx, argIdx+1)

	args = append(args, page.Size, page.Offset())

	var tasks []Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, total, nil
}

func (r *repository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE owner_id = $1`

	var n int64
	if err := r.db.GetContext(ctx, &n, query, ownerID); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return n, nil
}

func (r *repository) Update(ctx context.Context, t *Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
		    due_date = $6, completed_at = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &t.UpdatedAt, query,
		t.ID,
		t.Title,
		t.Description,
		t.Status,
		t.Priority,
		t.DueDate,
		t.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update task: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete task: %w", core.ErrNotFound)
	}

	return nil
}
