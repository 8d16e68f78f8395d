// AngelaMos | 2026
// repository.go

package friend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskispace/api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, f *Friendship) error
	GetByID(ctx context.Context, id string) (*Friendship, error)
	GetBetween(ctx context.Context, a, b string) (*Friendship, error)
	Accept(ctx context.Context, id string) (*Friendship, error)
	Delete(ctx context.Context, id string) error
	ListFriends(ctx context.Context, userID string) ([]Friend, error)
	ListIncoming(ctx context.Context, userID string) ([]Request, error)
	CountAccepted(ctx context.Context, userID string) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const friendshipColumns = `
	id, requester_id, addressee_id, status, created_at, accepted_at`

func (r *repository) Create(ctx context.Context, f *Friendship) error {
	query := `
		INSERT INTO friendships (id, requester_id, addressee_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &f.CreatedAt, query,
		f.ID,
		f.RequesterID,
		f.AddresseeID,
		f.Status,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create friendship: %w", core.ErrDuplicateKey)
		}
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create friendship: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create friendship: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = $1`

	var f Friendship
	err := r.db.GetContext(ctx, &f, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get friendship: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get friendship: %w", err)
	}

	return &f, nil
}

func (r *repository) GetBetween(ctx context.Context, a, b string) (*Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)`

	var f Friendship
	err := r.db.GetContext(ctx, &f, query, a, b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get friendship: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get friendship: %w", err)
	}

	return &f, nil
}

// Accept flips a pending link. A link that is already accepted or gone
// reports not found.
func (r *repository) Accept(ctx context.Context, id string) (*Friendship, error) {
	query := `
		UPDATE friendships
		SET status = 'accepted', accepted_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + friendshipColumns

	var f Friendship
	err := r.db.GetContext(ctx, &f, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("accept friendship: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("accept friendship: %w", err)
	}

	return &f, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete friendship: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListFriends(ctx context.Context, userID string) ([]Friend, error) {
	query := `
		SELECT f.id AS friendship_id, u.id AS user_id, u.name, u.email,
		       f.accepted_at AS since
		FROM friendships f
		JOIN users u ON u.id = CASE
			WHEN f.requester_id = $1 THEN f.addressee_id
			ELSE f.requester_id
		END
		WHERE (f.requester_id = $1 OR f.addressee_id = $1)
		  AND f.status = 'accepted'
		  AND u.deleted_at IS NULL
		ORDER BY u.name`

	var friends []Friend
	if err := r.db.SelectContext(ctx, &friends, query, userID); err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}

	return friends, nil
}

func (r *repository) ListIncoming(ctx context.Context, userID string) ([]Request, error) {
	query := `
		SELECT f.id, f.requester_id AS from_user_id, u.name AS from_name,
		       f.created_at
		FROM friendships f
		JOIN users u ON u.id = f.requester_id
		WHERE f.addressee_id = $1
		  AND f.status = 'pending'
		  AND u.deleted_at IS NULL
		ORDER BY f.created_at DESC`

	var requests []Request
	if err := r.db.SelectContext(ctx, &requests, query, userID); err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}

	return requests, nil
}

func (r *repository) CountAccepted(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM friendships
		WHERE (requester_id = $1 OR addressee_id = $1)
		  AND status = 'accepted'`

	var n int64
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("count friends: %w", err)
	}

	return n, nil
}
