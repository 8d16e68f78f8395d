// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/samber/lo"

	"github.com/taskispace/api/internal/core"
)

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicProfile is what other users may see.
type PublicProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListUsersParams filters the admin user listing. Search matches email or
// name case insensitively.
type ListUsersParams struct {
	Page   core.Page
	Search string
	Role   string
}

const (
	defaultUserPage = 20
	maxUserPage     = 100
)

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	return lo.Map(users, func(u User, _ int) UserResponse {
		return ToUserResponse(&u)
	})
}

func ToPublicProfile(u *User) PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name}
}
