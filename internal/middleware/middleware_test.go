// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskispace/api/internal/config"
	"github.com/taskispace/api/internal/core"
)

type fakeVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (f fakeVerifier) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*AccessTokenClaims, error) {
	return f.claims, f.err
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s|%s|%s",
			GetUserID(r.Context()),
			GetUserRole(r.Context()),
			GetUserPlan(r.Context()),
		)
	})
}

func TestAuthenticator_MissingToken(t *testing.T) {
	h := Authenticator(fakeVerifier{})(echoUser())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticator_StoresClaims(t *testing.T) {
	h := Authenticator(fakeVerifier{claims: &AccessTokenClaims{
		UserID: "u-1",
		Role:   "user",
		Plan:   "pro",
	}})(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1|user|pro", rec.Body.String())
}

func TestAuthenticator_ExpiredToken(t *testing.T) {
	h := Authenticator(fakeVerifier{
		err: fmt.Errorf("verify: %w", core.ErrTokenExpired),
	})(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &AccessTokenClaims{
		UserID: "u-1",
		Role:   "user",
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(WithClaims(req.Context(), &AccessTokenClaims{
		UserID: "u-2",
		Role:   "admin",
	}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, ExtractToken(req))

	req.Header.Set("Authorization", "bearer  tok ")
	assert.Equal(t, "tok", ExtractToken(req))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", seen)
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(config.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})(echoUser())

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLocalLimiter_Burst(t *testing.T) {
	l := newLocalLimiter()
	clock := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	limit := PerMinute(60, 2)

	var allowed []int
	for range 3 {
		res, err := l.allow("k", limit)
		require.NoError(t, err)
		allowed = append(allowed, res.Allowed)
	}
	assert.Equal(t, []int{1, 1, 0}, allowed)

	clock = clock.Add(time.Second)
	res, err := l.allow("k", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)
}

func TestLocalLimiter_SweepsIdleBuckets(t *testing.T) {
	l := newLocalLimiter()
	clock := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	_, err := l.allow("idle", PerMinute(60, 1))
	require.NoError(t, err)

	clock = clock.Add(idleTTL + time.Minute)
	_, err = l.allow("fresh", PerMinute(60, 1))
	require.NoError(t, err)

	assert.NotContains(t, l.buckets, "idle")
	assert.Contains(t, l.buckets, "fresh")
}

func TestPlanRateLimiter_BudgetByPlan(t *testing.T) {
	var seen []redis_rate.Limit
	allow := func(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
		seen = append(seen, limit)
		return &redis_rate.Result{Limit: limit, Allowed: 0, RetryAfter: 3 * time.Second}, nil
	}
	h := planRateLimiter(allow, DefaultPlanRates)(echoUser())

	for _, plan := range []string{"pro", "enterprise"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(req.Context(), &AccessTokenClaims{UserID: "u", Plan: plan}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	}

	require.Len(t, seen, 2)
	assert.Equal(t, 600, seen[0].Rate)
	assert.Equal(t, 60, seen[1].Rate)
}

func TestPlanRateLimiter_FailsOpen(t *testing.T) {
	allow := func(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
		return nil, errors.New("down")
	}
	h := planRateLimiter(allow, DefaultPlanRates)(echoUser())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "free", rec.Header().Get("X-RateLimit-Plan"))
}

func TestKeyByUser_FallsBackToIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "ratelimit:ip:10.0.0.1", KeyByUser(req))

	req = req.WithContext(WithClaims(req.Context(), &AccessTokenClaims{UserID: "u-9"}))
	assert.Equal(t, "ratelimit:user:u-9", KeyByUser(req))
}
