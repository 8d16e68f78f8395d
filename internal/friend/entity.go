// AngelaMos | 2026
// entity.go

package friend

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Friendship links two users. The pair is unordered: at most one row exists
// per pair regardless of who asked.
type Friendship struct {
	ID          string     `db:"id"`
	RequesterID string     `db:"requester_id"`
	AddresseeID string     `db:"addressee_id"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	AcceptedAt  *time.Time `db:"accepted_at"`
}

func (f *Friendship) IsPending() bool {
	return f.Status == StatusPending
}

func (f *Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Friend is an accepted link seen from one side.
type Friend struct {
	FriendshipID string     `db:"friendship_id"`
	UserID       string     `db:"user_id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	Since        *time.Time `db:"since"`
}

// Request is a pending link seen by the addressee.
type Request struct {
	ID         string    `db:"id"`
	FromUserID string    `db:"from_user_id"`
	FromName   string    `db:"from_name"`
	CreatedAt  time.Time `db:"created_at"`
}
