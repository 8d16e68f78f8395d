// AngelaMos | 2026
// dto.go

package workspace

import (
	"time"

	"github.com/samber/lo"
)

type CreateWorkspaceRequest struct {
	Name        string `json:"name"                  validate:"required,min=1,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Color       string `json:"color,omitempty"       validate:"omitempty,hexcolor"`
}

type UpdateWorkspaceRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Color       *string `json:"color,omitempty"       validate:"omitempty,hexcolor"`
}

type WorkspaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToWorkspaceResponse(w *Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Color:       w.Color,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func ToWorkspaceResponseList(workspaces []Workspace) []WorkspaceResponse {
	return lo.Map(workspaces, func(w Workspace, _ int) WorkspaceResponse {
		return ToWorkspaceResponse(&w)
	})
}
