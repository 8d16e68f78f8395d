// AngelaMos | 2026
// service.go

package friend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/events"
	"github.com/taskispace/api/internal/usage"
)

type Limiter interface {
	CheckLimit(ctx context.Context, userID string, key billing.LimitKey) usage.Result
	IncrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64)
	DecrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64)
	Consume(ctx context.Context, userID string, key billing.LimitKey, amount int64) usage.Result
}

type Service struct {
	repo    Repository
	limiter Limiter
	bus     *events.Bus
	logger  *slog.Logger
}

func NewService(
	repo Repository,
	limiter Limiter,
	bus *events.Bus,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		limiter: limiter,
		bus:     bus,
		logger:  logger,
	}
}

// SendRequest asks toID to become a friend. The sender must have room for
// one more friend.
func (s *Service) SendRequest(
	ctx context.Context,
	fromID, toID string,
) (*Friendship, error) {
	if fromID == toID {
		return nil, fmt.Errorf("send friend request: cannot befriend yourself: %w", core.ErrInvalidInput)
	}

	existing, err := s.repo.GetBetween(ctx, fromID, toID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("send friend request: %w", core.ErrDuplicateKey)
	}

	result := s.limiter.CheckLimit(ctx, fromID, billing.LimitMaxFriends)
	if !result.Allowed {
		return nil, result.Err()
	}

	f := &Friendship{
		ID:          uuid.New().String(),
		RequesterID: fromID,
		AddresseeID: toID,
		Status:      StatusPending,
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.bus.Publish(events.TopicFriendRequested, events.FriendRequested{
		RequestID:  f.ID,
		FromUserID: fromID,
		ToUserID:   toID,
	})

	return f, nil
}

// Accept turns a pending request addressed to userID into a friendship. Both
// sides must still have room, since the link counts against each of them.
func (s *Service) Accept(
	ctx context.Context,
	userID, requestID string,
) (*Friendship, error) {
	f, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if f.AddresseeID != userID || !f.IsPending() {
		return nil, fmt.Errorf("accept friend request: %w", core.ErrNotFound)
	}

	for _, id := range []string{f.AddresseeID, f.RequesterID} {
		result := s.limiter.CheckLimit(ctx, id, billing.LimitMaxFriends)
		if !result.Allowed {
			if id != userID {
				result.Reason = "The other user has reached their friend limit."
			}
			return nil, result.Err()
		}
	}

	accepted, err := s.repo.Accept(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.recordCount(ctx, accepted.RequesterID)
	s.recordCount(ctx, accepted.AddresseeID)

	s.bus.Publish(events.TopicFriendAccepted, events.FriendAccepted{
		RequesterID: accepted.RequesterID,
		AccepterID:  accepted.AddresseeID,
	})

	return accepted, nil
}

func (s *Service) recordCount(ctx context.Context, userID string) {
	n, err := s.repo.CountAccepted(ctx, userID)
	if err != nil {
		s.logger.Warn("friend count failed", "user_id", userID, "error", err)
		return
	}
	s.limiter.IncrementUsage(ctx, userID, usage.MetricFriendsCount, n)
}

// Decline drops a pending request. Either side may withdraw it.
func (s *Service) Decline(ctx context.Context, userID, requestID string) error {
	f, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if !f.Involves(userID) || !f.IsPending() {
		return fmt.Errorf("decline friend request: %w", core.ErrNotFound)
	}

	return s.repo.Delete(ctx, requestID)
}

// Remove ends an accepted friendship and frees a slot on both sides.
func (s *Service) Remove(ctx context.Context, userID, friendID string) error {
	f, err := s.repo.GetBetween(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if f.IsPending() {
		return fmt.Errorf("remove friend: %w", core.ErrNotFound)
	}

	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return err
	}

	s.limiter.DecrementUsage(ctx, userID, usage.MetricFriendsCount, 1)
	s.limiter.DecrementUsage(ctx, friendID, usage.MetricFriendsCount, 1)

	return nil
}

func (s *Service) ListFriends(ctx context.Context, userID string) ([]Friend, error) {
	return s.repo.ListFriends(ctx, userID)
}

func (s *Service) ListIncoming(ctx context.Context, userID string) ([]Request, error) {
	return s.repo.ListIncoming(ctx, userID)
}

// Nudge pokes a friend. The daily allowance is taken atomically so
// concurrent nudges cannot exceed it.
func (s *Service) Nudge(
	ctx context.Context,
	fromID, toID, message string,
) (usage.Result, error) {
	f, err := s.repo.GetBetween(ctx, fromID, toID)
	if errors.Is(err, core.ErrNotFound) {
		return usage.Result{}, fmt.Errorf("nudge: not friends: %w", core.ErrForbidden)
	}
	if err != nil {
		return usage.Result{}, err
	}
	if f.IsPending() {
		return usage.Result{}, fmt.Errorf("nudge: not friends: %w", core.ErrForbidden)
	}

	result := s.limiter.Consume(ctx, fromID, billing.LimitMaxNudgesPerDay, 1)
	if !result.Allowed {
		return result, result.Err()
	}

	s.bus.Publish(events.TopicNudged, events.Nudged{
		FromUserID: fromID,
		ToUserID:   toID,
		Message:    message,
	})

	return result, nil
}
