// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskispace/api/internal/core"
)

type fakeUsers struct {
	byID map[string]*UserInfo
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*UserInfo{}}
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUsers) Create(ctx context.Context, email, hash, name string) (*UserInfo, error) {
	if _, err := f.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}
	u := &UserInfo{ID: uuid.NewString(), Email: email, Name: name, PasswordHash: hash, Role: "user"}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) IncrementTokenVersion(ctx context.Context, userID string) error {
	f.byID[userID].TokenVersion++
	return nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, userID, hash string) error {
	f.byID[userID].PasswordHash = hash
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUsers) {
	t.Helper()
	repo := newTokenRepo(t)
	repo.now = time.Now
	users := newFakeUsers()
	return NewService(repo, newTestJWT(t), users, newFakePlans(), nil, nil), users
}

func register(t *testing.T, svc *Service) *AuthResponse {
	t.Helper()
	req := RegisterRequest{Name: "Ada"}
	req.Email, req.Password = "ada@example.com", "correct horse"
	resp, err := svc.Register(context.Background(), req, "test", "127.0.0.1")
	require.NoError(t, err)
	return resp
}

func TestService_RegisterThenLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp := register(t, svc)
	assert.Equal(t, "free", resp.User.Plan)
	assert.Equal(t, "Bearer", resp.Tokens.TokenType)

	req := RegisterRequest{Name: "Again"}
	req.Email, req.Password = "ada@example.com", "another pass"
	_, err := svc.Register(ctx, req, "", "")
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct horse"}, "", "")
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong horse"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever1"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RefreshReuseRevokesFamily(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := register(t, svc)
	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken, "", "")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrTokenReuse)

	_, err = svc.Refresh(ctx, second.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = svc.Refresh(ctx, "never-issued", "", "")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestService_LogoutAllRevokesAccessTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp := register(t, svc)
	claims, err := svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, claims.UserID))

	_, err = svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	sessions, err := svc.GetActiveSessions(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestService_SessionsBelongToOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp := register(t, svc)
	claims, err := svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)

	sessions, err := svc.GetActiveSessions(ctx, claims.UserID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	assert.ErrorIs(t, svc.RevokeSession(ctx, "intruder", sessions[0].ID), core.ErrForbidden)
	assert.ErrorIs(t, svc.Logout(ctx, resp.Tokens.RefreshToken, "intruder"), core.ErrForbidden)

	require.NoError(t, svc.Logout(ctx, resp.Tokens.RefreshToken, claims.UserID))
	require.NoError(t, svc.Logout(ctx, "unknown-token", claims.UserID))

	sessions, err = svc.GetActiveSessions(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestService_ChangePassword(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	resp := register(t, svc)
	userID := resp.User.ID

	assert.ErrorIs(t, svc.ChangePassword(ctx, userID, "not it", "brand new pass"), ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, userID, "correct horse", "brand new pass"))
	assert.Equal(t, 1, users.byID[userID].TokenVersion)

	_, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "brand new pass"}, "", "")
	assert.NoError(t, err)
}
