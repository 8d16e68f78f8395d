// AngelaMos | 2026
// entity.go

package task

import (
	"time"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          string     `db:"id"`
	WorkspaceID string     `db:"workspace_id"`
	OwnerID     string     `db:"owner_id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Status      string     `db:"status"`
	Priority    string     `db:"priority"`
	DueDate     *time.Time `db:"due_date"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// CreateInput is what a new task needs, whether it comes from the API or
// from an assistant action.
type CreateInput struct {
	WorkspaceID string
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
}
