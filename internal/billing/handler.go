// AngelaMos | 2026
// handler.go

package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/middleware"
)

const maxWebhookBytes = int64(65536)

type Handler struct {
	service   *Service
	validator *validator.Validate
	logger    *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/billing", func(r chi.Router) {
		r.Get("/plans", h.ListPlans)
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Get("/subscription", h.GetSubscription)
			r.Post("/checkout", h.Checkout)
			r.Post("/portal", h.Portal)
		})
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Put("/admin/users/{userID}/plan", h.AssignPlan)
	})
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPlanResponseList(plans))
}

func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if _, err := h.service.EnsureSubscription(r.Context(), userID); err != nil {
		core.WriteError(w, err, "subscription")
		return
	}

	sp, err := h.service.GetSubscriptionWithPlan(r.Context(), userID)
	if err != nil {
		core.WriteError(w, err, "subscription")
		return
	}

	core.OK(w, ToSubscriptionResponse(sp))
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	url, err := h.service.CreateCheckoutSession(r.Context(), userID, req.Interval)
	if err != nil {
		core.WriteError(w, err, "plan")
		return
	}

	core.OK(w, URLResponse{URL: url})
}

func (h *Handler) Portal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	url, err := h.service.CreatePortalSession(r.Context(), userID)
	if err != nil {
		core.WriteError(w, err, "subscription")
		return
	}

	core.OK(w, URLResponse{URL: url})
}

// Webhook acknowledges events for unknown customers so the processor stops
// retrying them. Any other failure returns 500 to get a retry.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		core.BadRequest(w, "invalid payload")
		return
	}

	err = h.service.HandleWebhook(
		r.Context(),
		payload,
		r.Header.Get("Stripe-Signature"),
	)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrInvalidInput):
		h.logger.Warn("webhook rejected", "error", err)
		core.BadRequest(w, "signature verification failed")
		return
	case errors.Is(err, core.ErrNotFound):
		h.logger.Warn("webhook for unknown customer", "error", err)
	default:
		core.WriteError(w, err, "subscription")
		return
	}

	core.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) AssignPlan(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req AssignPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sp, err := h.service.AssignPlan(r.Context(), userID, req.Plan)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, ToSubscriptionResponse(sp))
}
