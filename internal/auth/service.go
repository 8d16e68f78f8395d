// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	TokenVersion int
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, email, passwordHash, name string) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// PlanProvider gives every signed in user a subscription and names the
// plan it is on.
type PlanProvider interface {
	EnsureSubscription(ctx context.Context, userID string) (*billing.Subscription, error)
	GetPlan(ctx context.Context, id string) (*billing.Plan, error)
}

// client describes where a sign in came from; it is stored on the session.
type client struct {
	userAgent string
	ip        string
}

type Service struct {
	repo   Repository
	jwt    *JWTManager
	users  UserProvider
	plans  PlanProvider
	redis  *redis.Client
	logger *slog.Logger
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	users UserProvider,
	plans PlanProvider,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		jwt:    jwt,
		users:  users,
		plans:  plans,
		redis:  redisClient,
		logger: logger,
	}
}

// planFor provisions a free subscription for users that have none and
// returns the plan name carried in the access token. The claim only picks
// a request rate tier, so lookup failures degrade to the free tier instead
// of failing the sign in.
func (s *Service) planFor(ctx context.Context, userID string) string {
	if s.plans == nil {
		return billing.PlanFree
	}

	sub, err := s.plans.EnsureSubscription(ctx, userID)
	if err != nil {
		s.logger.Warn("subscription provisioning failed", "user_id", userID, "error", err)
		return billing.PlanFree
	}

	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		s.logger.Warn("plan lookup failed", "user_id", userID, "plan_id", sub.PlanID, "error", err)
		return billing.PlanFree
	}

	return plan.Name
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	var stored *string
	u, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		stored = &u.PasswordHash
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, upgraded, err := core.VerifyPasswordTimingSafe(req.Password, stored)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if upgraded != "" {
		if err := s.users.UpdatePassword(ctx, u.ID, upgraded); err != nil {
			s.logger.Warn("password rehash failed", "user_id", u.ID, "error", err)
		}
	}

	return s.issue(ctx, u, client{userAgent, ipAddress}, nil)
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, req.Email, hash, req.Name)
	if errors.Is(err, core.ErrDuplicateKey) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ctx, u, client{userAgent, ipAddress}, nil)
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated revokes its whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	switch stored.State(time.Now()) {
	case TokenReused:
		if err := s.repo.RevokeByFamilyID(ctx, stored.FamilyID); err != nil {
			s.logger.Error("revoke reused token family failed",
				"family_id", stored.FamilyID, "error", err)
		}
		s.logger.Warn("refresh token reuse detected", "user_id", stored.UserID)
		return nil, ErrTokenReuse
	case TokenRevoked:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	case TokenExpired:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	u, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return s.issue(ctx, u, client{userAgent, ipAddress}, stored)
}

// owned checks a looked up refresh token belongs to userID.
func owned(token *RefreshToken, err error, userID string) error {
	if err != nil {
		return err
	}
	if token.UserID != userID {
		return core.ErrForbidden
	}
	return nil
}

func (s *Service) Logout(ctx context.Context, refreshToken, userID string) error {
	token, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err := owned(token, err, userID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if err := s.repo.RevokeByID(ctx, token.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token and bumps the token version so
// outstanding access tokens stop verifying.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}
	s.forgetVersion(ctx, userID)
	return nil
}

func (s *Service) GetActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	return lo.Map(tokens, func(t RefreshToken, _ int) SessionInfo {
		return t.ToSession()
	}), nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	token, err := s.repo.FindByID(ctx, sessionID)
	if err := owned(token, err, userID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if err := s.repo.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	ok, _, err := core.VerifyPasswordWithRehash(current, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := core.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(u, s.planFor(ctx, u.ID))
	return &resp, nil
}

// VerifyAccessToken checks the signature and rejects tokens minted before
// the user's last LogoutAll or password change.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	current, err := s.tokenVersion(ctx, claims.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if claims.TokenVersion < current {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}
	return claims, nil
}

func versionKey(userID string) string {
	return "auth:token_version:" + userID
}

// tokenVersion reads through a redis cache that lives as long as an access
// token. Cache failures fall through to the user store.
func (s *Service) tokenVersion(ctx context.Context, userID string) (int, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, versionKey(userID)).Int()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("token version cache read failed", "user_id", userID, "error", err)
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		ttl := s.jwt.AccessTokenTTL()
		if err := s.redis.Set(ctx, versionKey(userID), strconv.Itoa(u.TokenVersion), ttl).Err(); err != nil {
			s.logger.Warn("token version cache write failed", "user_id", userID, "error", err)
		}
	}
	return u.TokenVersion, nil
}

func (s *Service) forgetVersion(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, versionKey(userID)).Err(); err != nil {
		s.logger.Warn("token version cache evict failed", "user_id", userID, "error", err)
	}
}

// issue mints an access token and a refresh token. When rotating, the new
// refresh token joins prev's family and prev is marked used.
func (s *Service) issue(
	ctx context.Context,
	u *UserInfo,
	from client,
	prev *RefreshToken,
) (*AuthResponse, error) {
	plan := s.planFor(ctx, u.ID)

	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       u.ID,
		Role:         u.Role,
		Plan:         plan,
		TokenVersion: u.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	familyID := ""
	if prev != nil {
		familyID = prev.FamilyID
	}
	refresh, err := s.jwt.CreateRefreshToken(u.ID, familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	session := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: refresh.Hash,
		FamilyID:  refresh.FamilyID,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: from.userAgent,
		IPAddress: from.ip,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if prev != nil {
		if err := s.repo.MarkAsUsed(ctx, prev.ID, session.ID); err != nil {
			s.logger.Warn("mark refresh token used failed", "token_id", prev.ID, "error", err)
		}
	}

	ttl := s.jwt.AccessTokenTTL()
	return &AuthResponse{
		User: toUserResponse(u, plan),
		Tokens: TokenResponse{
			AccessToken:  access,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl / time.Second),
			ExpiresAt:    time.Now().Add(ttl),
		},
	}, nil
}
