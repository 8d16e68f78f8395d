// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// allowFunc spends one request from key's budget.
type allowFunc func(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)

// redisWithFallback prefers the shared redis budget and degrades to a
// per-instance token bucket while redis is unreachable.
func redisWithFallback(rdb *redis.Client) allowFunc {
	shared := redis_rate.NewLimiter(rdb)
	local := newLocalLimiter()

	return func(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
		res, err := shared.Allow(ctx, key, limit)
		if err == nil {
			return res, nil
		}
		slog.Debug("redis rate limiter unavailable, using local bucket", "key", key, "error", err)
		return local.allow(key, limit)
	}
}

type RateLimitConfig struct {
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	FailOpen   bool
	BypassFunc func(*http.Request) bool
}

type RateLimiter struct {
	allow  allowFunc
	config RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	return &RateLimiter{allow: redisWithFallback(rdb), config: cfg}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}
		enforce(w, r, next, rl.allow, rl.config.KeyFunc(r), rl.config.Limit, rl.config.FailOpen)
	})
}

// PlanRate is the request budget granted to a subscription plan.
type PlanRate struct {
	RequestsPerMinute int
	BurstSize         int
}

const fallbackPlan = "free"

var DefaultPlanRates = map[string]PlanRate{
	"free": {RequestsPerMinute: 60, BurstSize: 10},
	"pro":  {RequestsPerMinute: 600, BurstSize: 100},
}

// PlanRateLimiter applies a per-user budget chosen by the plan claim carried
// in the access token. It must run after Authenticator. Unknown plans get
// the free budget.
func PlanRateLimiter(rdb *redis.Client, rates map[string]PlanRate) func(http.Handler) http.Handler {
	return planRateLimiter(redisWithFallback(rdb), rates)
}

func planRateLimiter(allow allowFunc, rates map[string]PlanRate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plan := GetUserPlan(r.Context())
			budget, ok := rates[plan]
			if !ok {
				plan, budget = fallbackPlan, rates[fallbackPlan]
			}

			w.Header().Set("X-RateLimit-Plan", plan)
			enforce(w, r, next, allow, KeyByUser(r),
				PerMinute(budget.RequestsPerMinute, budget.BurstSize), true)
		})
	}
}

func enforce(
	w http.ResponseWriter,
	r *http.Request,
	next http.Handler,
	allow allowFunc,
	key string,
	limit redis_rate.Limit,
	failOpen bool,
) {
	res, err := allow(r.Context(), key, limit)
	if err != nil {
		if failOpen {
			slog.Warn("rate limiter error, failing open", "error", err, "key", key)
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	setRateLimitHeaders(w, res, limit)
	if res.Allowed == 0 {
		writeRateLimitExceeded(w, res)
		return
	}
	next.ServeHTTP(w, r)
}

// KeyByIP keys on the client address. chi's RealIP middleware has already
// folded proxy headers into RemoteAddr.
func KeyByIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ratelimit:ip:" + ip
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

func setRateLimitHeaders(w http.ResponseWriter, res *redis_rate.Result, limit redis_rate.Limit) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    "RATE_LIMITED",
			"message": fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter),
		},
	})
}
