// AngelaMos | 2026
// handler.go

package usage

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/middleware"
)

type Handler struct {
	limiter *Limiter
}

func NewHandler(limiter *Limiter) *Handler {
	return &Handler{limiter: limiter}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/usage", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.GetUsage)
		r.Get("/limits/{limitKey}", h.CheckLimit)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/users/{userID}/usage", h.ListCounters)
		r.Post("/admin/users/{userID}/usage/reset", h.ResetUsage)
	})
}

func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	view, err := h.limiter.GetUserSubscriptionWithUsage(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if view == nil {
		core.NotFound(w, "subscription")
		return
	}

	core.OK(w, ToSubscriptionUsageResponse(view))
}

func (h *Handler) CheckLimit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	key := billing.LimitKey(chi.URLParam(r, "limitKey"))

	if !key.Valid() {
		core.BadRequest(w, "unknown limit key")
		return
	}

	result := h.limiter.CheckLimit(r.Context(), userID, key)
	core.OK(w, ToLimitCheckResponse(key, result))
}

func (h *Handler) ListCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := h.limiter.ListCounters(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCounterResponseList(counters))
}

func (h *Handler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.limiter.ResetPeriodicUsage(r.Context(), userID); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}
