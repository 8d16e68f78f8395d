// AngelaMos | 2026
// handler.go

package friend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/friends", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListFriends)
		r.Get("/requests", h.ListIncoming)
		r.Post("/requests", h.SendRequest)
		r.Post("/requests/{requestID}/accept", h.Accept)
		r.Delete("/requests/{requestID}", h.Decline)
		r.Delete("/{friendID}", h.Remove)
		r.Post("/{friendID}/nudge", h.Nudge)
	})
}

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.service.ListFriends(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToFriendResponseList(friends))
}

func (h *Handler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListIncoming(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToRequestResponseList(requests))
}

func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	f, err := h.service.SendRequest(r.Context(), userID, req.UserID)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("friend request"))
			return
		}
		core.WriteError(w, err, "user")
		return
	}

	core.Created(w, ToFriendshipResponse(f))
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	f, err := h.service.Accept(r.Context(), userID, chi.URLParam(r, "requestID"))
	if err != nil {
		core.WriteError(w, err, "friend request")
		return
	}

	core.OK(w, ToFriendshipResponse(f))
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.Decline(r.Context(), userID, chi.URLParam(r, "requestID")); err != nil {
		core.WriteError(w, err, "friend request")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.Remove(r.Context(), userID, chi.URLParam(r, "friendID")); err != nil {
		core.WriteError(w, err, "friend")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Nudge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req NudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.Nudge(r.Context(), userID, chi.URLParam(r, "friendID"), req.Message)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "you can only nudge friends")
			return
		}
		core.WriteError(w, err, "friend")
		return
	}

	core.OK(w, NudgeResponse{
		SentToday: result.Current,
		Limit:     result.Limit.Raw(),
	})
}
