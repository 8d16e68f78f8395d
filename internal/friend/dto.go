// AngelaMos | 2026
// dto.go

package friend

import (
	"time"

	"github.com/samber/lo"
)

type SendRequestRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type NudgeRequest struct {
	Message string `json:"message,omitempty" validate:"max=140"`
}

type FriendResponse struct {
	UserID string     `json:"user_id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Since  *time.Time `json:"since,omitempty"`
}

type RequestResponse struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	FromName   string    `json:"from_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type FriendshipResponse struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	AddresseeID string    `json:"addressee_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type NudgeResponse struct {
	SentToday int64 `json:"sent_today"`
	Limit     int64 `json:"limit"`
}

func ToFriendResponseList(friends []Friend) []FriendResponse {
	return lo.Map(friends, func(f Friend, _ int) FriendResponse {
		return FriendResponse{
			UserID: f.UserID,
			Name:   f.Name,
			Email:  f.Email,
			Since:  f.Since,
		}
	})
}

func ToRequestResponseList(requests []Request) []RequestResponse {
	return lo.Map(requests, func(r Request, _ int) RequestResponse {
		return RequestResponse(r)
	})
}

func ToFriendshipResponse(f *Friendship) FriendshipResponse {
	return FriendshipResponse{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		AddresseeID: f.AddresseeID,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
	}
}
