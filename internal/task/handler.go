// AngelaMos | 2026
// handler.go

package task

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
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/workspaces/{workspaceID}/tasks", h.List)
		r.Post("/workspaces/{workspaceID}/tasks", h.Create)

		r.Get("/tasks/{taskID}", h.Get)
		r.Put("/tasks/{taskID}", h.Update)
		r.Delete("/tasks/{taskID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	params := ListTasksParams{
		WorkspaceID: chi.URLParam(r, "workspaceID"),
		Status:      r.URL.Query().Get("status"),
		Page:        core.PageFromQuery(r, defaultTaskPage, maxTaskPage),
	}

	tasks, total, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		core.WriteError(w, err, "workspace")
		return
	}

	core.Paginated(w, ToTaskResponseList(tasks), params.Page, total)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	t, err := h.service.Create(r.Context(), userID, CreateInput{
		WorkspaceID: chi.URLParam(r, "workspaceID"),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		core.WriteError(w, err, "workspace")
		return
	}

	core.Created(w, ToTaskResponse(t))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "taskID"))
	if err != nil {
		core.WriteError(w, err, "task")
		return
	}

	core.OK(w, ToTaskResponse(t))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	t, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "taskID"), req)
	if err != nil {
		core.WriteError(w, err, "task")
		return
	}

	core.OK(w, ToTaskResponse(t))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "taskID")); err != nil {
		core.WriteError(w, err, "task")
		return
	}

	core.NoContent(w)
}
