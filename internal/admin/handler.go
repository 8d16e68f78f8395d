// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/taskispace/api/internal/core"
)

type DBPool interface {
	Ping(ctx context.Context) error
	Stats() sql.DBStats
}

type RedisPool interface {
	Ping(ctx context.Context) error
	PoolStats() *redis.PoolStats
}

// SubscriptionCounter reports how many subscriptions sit on each plan.
type SubscriptionCounter interface {
	SubscriptionCounts(ctx context.Context) (map[string]int, error)
}

// JobRunner triggers a scheduled housekeeping job out of band.
type JobRunner interface {
	RunNow(ctx context.Context, name string) (int64, error)
}

// HandlerConfig wires the admin endpoints. Nil members report as
// unavailable.
type HandlerConfig struct {
	Database      DBPool
	Redis         RedisPool
	Subscriptions SubscriptionCounter
	Jobs          JobRunner
}

type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
		r.Get("/stats/subscriptions", h.GetSubscriptionStats)
		r.Post("/jobs/{job}/run", h.RunJob)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := SystemStatsResponse{Runtime: readRuntimeStats()}
	if db := h.cfg.Database; db != nil {
		resp.Database = DatabaseStatus{Healthy: db.Ping(ctx) == nil, Stats: newDBPoolStats(db.Stats())}
	}
	if rdb := h.cfg.Redis; rdb != nil {
		resp.Redis = RedisStatus{Healthy: rdb.Ping(ctx) == nil, Stats: newRedisPoolStats(rdb.PoolStats())}
	}
	if counts, err := h.subscriptionCounts(ctx); err == nil {
		resp.Subscriptions = counts
	}

	core.OK(w, resp)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Database == nil {
		core.JSONError(w, core.UnavailableError("database stats unavailable"))
		return
	}
	core.OK(w, newDBPoolStats(h.cfg.Database.Stats()))
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Redis == nil {
		core.JSONError(w, core.UnavailableError("redis stats unavailable"))
		return
	}
	core.OK(w, newRedisPoolStats(h.cfg.Redis.PoolStats()))
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, readRuntimeStats())
}

func (h *Handler) GetSubscriptionStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.subscriptionCounts(r.Context())
	if err != nil {
		core.WriteError(w, err, "subscriptions")
		return
	}
	core.OK(w, counts)
}

// RunJob runs a housekeeping job immediately, for example after a manual
// data fix.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Jobs == nil {
		core.JSONError(w, core.UnavailableError("scheduler disabled"))
		return
	}

	name := chi.URLParam(r, "job")
	affected, err := h.cfg.Jobs.RunNow(r.Context(), name)
	if err != nil {
		core.WriteError(w, err, "job")
		return
	}
	core.OK(w, JobRunResponse{Job: name, Affected: affected})
}

func (h *Handler) subscriptionCounts(ctx context.Context) (*SubscriptionStats, error) {
	if h.cfg.Subscriptions == nil {
		return nil, fmt.Errorf("subscription stats: %w", core.ErrUnavailable)
	}

	counts, err := h.cfg.Subscriptions.SubscriptionCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &SubscriptionStats{Total: lo.Sum(lo.Values(counts)), ByPlan: counts}, nil
}
