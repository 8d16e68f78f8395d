// AngelaMos | 2026
// entity.go

package workspace

import (
	"time"
)

type Workspace struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Color       string    `db:"color"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (w *Workspace) OwnedBy(userID string) bool {
	return w.OwnerID == userID
}

// Removal reports what a workspace delete took with it.
type Removal struct {
	Removed   int64 `db:"removed"`
	TaskCount int64 `db:"task_count"`
}
