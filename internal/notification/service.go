// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskispace/api/internal/events"
)

const deliverTimeout = 5 * time.Second

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Subscribe turns domain events into notifications for the user they
// concern.
func (s *Service) Subscribe(bus *events.Bus) error {
	subscriptions := []func() error{
		func() error {
			return events.Subscribe(bus, events.TopicFriendRequested, func(e events.FriendRequested) {
				s.deliver(e.ToUserID, e.FromUserID, KindFriendRequest,
					"You have a new friend request", e.RequestID)
			})
		},
		func() error {
			return events.Subscribe(bus, events.TopicFriendAccepted, func(e events.FriendAccepted) {
				s.deliver(e.RequesterID, e.AccepterID, KindFriendAccepted,
					"Your friend request was accepted", e.AccepterID)
			})
		},
		func() error {
			return events.Subscribe(bus, events.TopicNudged, func(e events.Nudged) {
				msg := e.Message
				if msg == "" {
					msg = "You got a nudge!"
				}
				s.deliver(e.ToUserID, e.FromUserID, KindNudge, msg, "")
			})
		},
		func() error {
			return events.Subscribe(bus, events.TopicJarvisTaskCreated, func(e events.JarvisTaskCreated) {
				s.deliver(e.UserID, "", KindJarvisTask,
					fmt.Sprintf("Jarvis created a task: %s", e.Title), e.TaskID)
			})
		},
		func() error {
			return events.Subscribe(bus, events.TopicPlanChanged, func(e events.PlanChanged) {
				s.deliver(e.UserID, "", KindPlanChanged,
					fmt.Sprintf("You are now on the %s plan", e.Plan), e.Plan)
			})
		},
	}

	for _, subscribe := range subscriptions {
		if err := subscribe(); err != nil {
			return err
		}
	}
	return nil
}

// deliver runs on the event bus goroutine, detached from the request that
// published.
func (s *Service) deliver(userID, actorID, kind, message, entityID string) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if _, err := s.Notify(ctx, userID, actorID, kind, message, entityID); err != nil {
		s.logger.Error("notification delivery failed",
			"user_id", userID,
			"kind", kind,
			"error", err,
		)
	}
}

func (s *Service) Notify(
	ctx context.Context,
	userID, actorID, kind, message, entityID string,
) (*Notification, error) {
	n := &Notification{
		ID:       uuid.New().String(),
		UserID:   userID,
		Kind:     kind,
		Message:  message,
		EntityID: entityID,
	}
	if actorID != "" {
		n.ActorID = &actorID
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Notification, int64, error) {
	items, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, 0, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return items, unread, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
