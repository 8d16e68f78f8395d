// AngelaMos | 2026
// entity.go

package notification

import (
	"time"
)

const (
	KindFriendRequest  = "friend_request"
	KindFriendAccepted = "friend_accepted"
	KindNudge          = "nudge"
	KindJarvisTask     = "jarvis_task"
	KindPlanChanged    = "plan_changed"
)

type Notification struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	ActorID   *string    `db:"actor_id"`
	Kind      string     `db:"kind"`
	Message   string     `db:"message"`
	EntityID  string     `db:"entity_id"`
	ReadAt    *time.Time `db:"read_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
