// AngelaMos | 2026
// repository_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/taskispace/api/internal/core"
)

const tokenSchema = `
CREATE TABLE refresh_tokens (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	token_hash     TEXT NOT NULL UNIQUE,
	family_id      TEXT NOT NULL,
	expires_at     TIMESTAMP NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	is_used        BOOLEAN NOT NULL DEFAULT FALSE,
	used_at        TIMESTAMP,
	revoked_at     TIMESTAMP,
	replaced_by_id TEXT,
	user_agent     TEXT NOT NULL DEFAULT '',
	ip_address     TEXT NOT NULL DEFAULT ''
)`

var repoNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTokenRepo(t *testing.T) *repository {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(tokenSchema)
	require.NoError(t, err)

	repo := NewRepository(db).(*repository)
	repo.now = func() time.Time { return repoNow }
	return repo
}

func seedToken(t *testing.T, repo *repository, id, family string, expires time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &RefreshToken{
		ID:        id,
		UserID:    "user-1",
		TokenHash: "hash-" + id,
		FamilyID:  family,
		ExpiresAt: expires,
		UserAgent: "test",
	}))
}

func TestTokenRepository_RotationChain(t *testing.T) {
	repo := newTokenRepo(t)
	ctx := context.Background()
	seedToken(t, repo, "a", "fam", repoNow.Add(time.Hour))

	found, err := repo.FindByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, TokenActive, found.State(repoNow))

	require.NoError(t, repo.MarkAsUsed(ctx, "a", "b"))
	assert.ErrorIs(t, repo.MarkAsUsed(ctx, "a", "c"), core.ErrNotFound)

	found, err = repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, TokenReused, found.State(repoNow))
	require.NotNil(t, found.ReplacedByID)
	assert.Equal(t, "b", *found.ReplacedByID)
}

func TestTokenRepository_RevokeFamily(t *testing.T) {
	repo := newTokenRepo(t)
	ctx := context.Background()
	seedToken(t, repo, "a", "fam", repoNow.Add(time.Hour))
	seedToken(t, repo, "b", "fam", repoNow.Add(time.Hour))
	seedToken(t, repo, "c", "other", repoNow.Add(time.Hour))

	require.NoError(t, repo.RevokeByFamilyID(ctx, "fam"))

	sessions, err := repo.GetActiveSessionsForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "c", sessions[0].ID)

	assert.ErrorIs(t, repo.RevokeByID(ctx, "a"), core.ErrNotFound)
	require.NoError(t, repo.RevokeByID(ctx, "c"))
}

func TestTokenRepository_FindMissing(t *testing.T) {
	repo := newTokenRepo(t)

	_, err := repo.FindByHash(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTokenRepository_DeleteExpiredKeepsRecent(t *testing.T) {
	repo := newTokenRepo(t)
	ctx := context.Background()
	seedToken(t, repo, "old", "f1", repoNow.Add(-48*time.Hour))
	seedToken(t, repo, "recent", "f2", repoNow.Add(-time.Hour))
	seedToken(t, repo, "live", "f3", repoNow.Add(time.Hour))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(ctx, "recent")
	assert.NoError(t, err)
}

func TestRefreshTokenState(t *testing.T) {
	revoked := repoNow
	cases := map[string]struct {
		token RefreshToken
		want  TokenState
	}{
		"active":      {RefreshToken{ExpiresAt: repoNow.Add(time.Minute)}, TokenActive},
		"expired":     {RefreshToken{ExpiresAt: repoNow}, TokenExpired},
		"revoked":     {RefreshToken{ExpiresAt: repoNow.Add(time.Minute), RevokedAt: &revoked}, TokenRevoked},
		"reused wins": {RefreshToken{IsUsed: true, RevokedAt: &revoked}, TokenReused},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.token.State(repoNow))
		})
	}
}
