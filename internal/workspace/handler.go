// AngelaMos | 2026
// handler.go

package workspace

import (
	"encoding/json"
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
	r.Route("/workspaces", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{workspaceID}", h.Get)
		r.Put("/{workspaceID}", h.Update)
		r.Delete("/{workspaceID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	workspaces, err := h.service.List(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToWorkspaceResponseList(workspaces))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ws, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		core.WriteError(w, err, "workspace")
		return
	}

	core.Created(w, ToWorkspaceResponse(ws))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	ws, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "workspaceID"))
	if err != nil {
		core.WriteError(w, err, "workspace")
		return
	}

	core.OK(w, ToWorkspaceResponse(ws))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ws, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "workspaceID"), req)
	if err != nil {
		core.WriteError(w, err, "workspace")
		return
	}

	core.OK(w, ToWorkspaceResponse(ws))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "workspaceID")); err != nil {
		core.WriteError(w, err, "workspace")
		return
	}

	core.NoContent(w)
}
