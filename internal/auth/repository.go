// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskispace/api/internal/core"
)

// expiredRetention keeps expired links around long enough that a late
// replay is still recognised as reuse.
const expiredRetention = 24 * time.Hour

type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	FindByID(ctx context.Context, id string) (*RefreshToken, error)
	MarkAsUsed(ctx context.Context, id, replacedByID string) error
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	GetActiveSessionsForUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

const tokenColumns = `
	id, user_id, token_hash, family_id, expires_at, created_at,
	is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address`

type repository struct {
	db  core.DBTX
	now func() time.Time
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	token.CreatedAt = r.now().UTC()
	token.ExpiresAt = token.ExpiresAt.UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at,
			user_agent, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.FamilyID,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *repository) findOne(ctx context.Context, column, value string) (*RefreshToken, error) {
	var token RefreshToken
	err := r.db.GetContext(ctx, &token,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE `+column+` = $1`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &token, nil
}

func (r *repository) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	return r.findOne(ctx, "token_hash", tokenHash)
}

func (r *repository) FindByID(ctx context.Context, id string) (*RefreshToken, error) {
	return r.findOne(ctx, "id", id)
}

// MarkAsUsed only flips a link once. A second call reports ErrNotFound.
func (r *repository) MarkAsUsed(ctx context.Context, id, replacedByID string) error {
	return r.execOne(ctx, "mark refresh token used", `
		UPDATE refresh_tokens
		SET is_used = TRUE, used_at = $2, replaced_by_id = $3
		WHERE id = $1 AND is_used = FALSE`,
		id, r.now().UTC(), replacedByID,
	)
}

func (r *repository) RevokeByID(ctx context.Context, id string) error {
	return r.execOne(ctx, "revoke refresh token", `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL`,
		id, r.now().UTC(),
	)
}

func (r *repository) RevokeByFamilyID(ctx context.Context, familyID string) error {
	return r.revokeWhere(ctx, "family_id", familyID)
}

func (r *repository) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.revokeWhere(ctx, "user_id", userID)
}

func (r *repository) revokeWhere(ctx context.Context, column, value string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE `+column+` = $1 AND revoked_at IS NULL`,
		value, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoke tokens by %s: %w", column, err)
	}
	return nil
}

func (r *repository) GetActiveSessionsForUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	tokens := []RefreshToken{}
	err := r.db.SelectContext(ctx, &tokens, `
		SELECT `+tokenColumns+`
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND is_used = FALSE
			AND expires_at > $2
		ORDER BY created_at DESC`,
		userID, r.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}
	return tokens, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`,
		r.now().UTC().Add(-expiredRetention),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
