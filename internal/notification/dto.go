// AngelaMos | 2026
// dto.go

package notification

import (
	"time"

	"github.com/samber/lo"
)

type ListParams struct {
	UnreadOnly bool
	Limit      int
}

func (p *ListParams) Normalize() {
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 50
	}
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	ActorID   *string   `json:"actor_id,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type ListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Unread        int64                  `json:"unread"`
}

type ReadAllResponse struct {
	Updated int64 `json:"updated"`
}

func ToNotificationResponseList(items []Notification) []NotificationResponse {
	return lo.Map(items, func(n Notification, _ int) NotificationResponse {
		return NotificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Message:   n.Message,
			ActorID:   n.ActorID,
			EntityID:  n.EntityID,
			Read:      n.IsRead(),
			CreatedAt: n.CreatedAt,
		}
	})
}
