// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependency is a backing service readiness depends on.
type Dependency struct {
	Name    string
	Checker Checker
}

type state int32

const (
	stateReady state = iota
	stateNotReady
	stateShuttingDown
)

var stateNames = map[state]string{
	stateReady:        "ok",
	stateNotReady:     "not_ready",
	stateShuttingDown: "shutting_down",
}

type Handler struct {
	deps  []Dependency
	state atomic.Int32
}

func NewHandler(deps ...Dependency) *Handler {
	return &Handler{deps: deps}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) current() state {
	return state(h.state.Load())
}

// SetReady toggles readiness. Once shutting down it has no effect.
func (h *Handler) SetReady(ready bool) {
	next := stateNotReady
	if ready {
		next = stateReady
	}
	for {
		cur := h.state.Load()
		if state(cur) == stateShuttingDown || h.state.CompareAndSwap(cur, int32(next)) {
			return
		}
	}
}

func (h *Handler) SetShutdown(shutdown bool) {
	if shutdown {
		h.state.Store(int32(stateShuttingDown))
		return
	}
	h.state.Store(int32(stateReady))
}

// Liveness fails only while draining.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.current() == stateShuttingDown {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: stateNames[stateShuttingDown]})
		return
	}
	writeStatus(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Readiness pings every dependency concurrently. One failure marks the
// instance degraded so the load balancer stops routing to it.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if s := h.current(); s != stateReady {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: stateNames[s]})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.runChecks(ctx)
	if lo.EveryBy(checks, func(c HealthCheck) bool { return c.Healthy }) {
		writeStatus(w, http.StatusOK, ReadinessResponse{Status: "ok", Checks: checks})
		return
	}
	writeStatus(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "degraded", Checks: checks})
}

func (h *Handler) runChecks(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.deps))

	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			checks[i] = probe(ctx, dep)
			return nil
		})
	}
	//nolint:errcheck // probes record failures in checks
	_ = g.Wait()

	return checks
}

func probe(ctx context.Context, dep Dependency) HealthCheck {
	if dep.Checker == nil {
		return HealthCheck{Name: dep.Name, Message: dep.Name + " checker not configured"}
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)
	result := HealthCheck{
		Name:    dep.Name,
		Healthy: err == nil,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		result.Message = "ping failed"
	}
	return result
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
