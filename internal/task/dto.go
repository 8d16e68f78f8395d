// AngelaMos | 2026
// dto.go

package task

import (
	"time"

	"github.com/samber/lo"

	"github.com/taskispace/api/internal/core"
)

type CreateTaskRequest struct {
	Title       string     `json:"title"                 validate:"required,min=1,max=200"`
	Description string     `json:"description,omitempty" validate:"max=5000"`
	Priority    string     `json:"priority,omitempty"    validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"       validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *string    `json:"status,omitempty"      validate:"omitempty,oneof=todo in_progress done"`
	Priority    *string    `json:"priority,omitempty"    validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type ListTasksParams struct {
	WorkspaceID string
	Status      string
	Page        core.Page
}

const (
	defaultTaskPage = 50
	maxTaskPage     = 200
)

type TaskResponse struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func ToTaskResponse(t *Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		WorkspaceID: t.WorkspaceID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func ToTaskResponseList(tasks []Task) []TaskResponse {
	return lo.Map(tasks, func(t Task, _ int) TaskResponse {
		return ToTaskResponse(&t)
	})
}
