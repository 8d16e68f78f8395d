// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/samber/lo"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var roles = []string{RoleUser, RoleAdmin}

func ValidRole(role string) bool {
	return lo.Contains(roles, role)
}

// User is an account row. Deleted accounts stay in the table with
// DeletedAt set and are invisible to every lookup.
type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Role         string     `db:"role"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
