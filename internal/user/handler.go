// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

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
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		r.Delete("/me", h.DeleteMe)
		r.Get("/lookup", h.Lookup)
	})
}

// RegisterAdminRoutes registers admin-only user management endpoints.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListUsers)
		r.Get("/{userID}", h.GetUser)
		r.Put("/{userID}", h.UpdateUser)
		r.Put("/{userID}/role", h.UpdateUserRole)
		r.Delete("/{userID}", h.DeleteUser)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

// reply returns a writer for a user or the error that stopped us from
// loading one.
func reply(w http.ResponseWriter) func(*User, error) {
	return func(u *User, err error) {
		if err != nil {
			core.WriteError(w, err, "user")
			return
		}
		core.OK(w, ToUserResponse(u))
	}
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	reply(w)(h.service.GetMe(r.Context(), middleware.GetUserID(r.Context())))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if h.decode(w, r, &req) {
		reply(w)(h.service.UpdateMe(r.Context(), middleware.GetUserID(r.Context()), req))
	}
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMe(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		core.WriteError(w, err, "user")
		return
	}
	core.NoContent(w)
}

// Lookup finds another user by exact email so they can be sent a friend
// request. Only the public profile is returned.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if err := h.validator.Var(email, "required,email,max=255"); err != nil {
		core.BadRequest(w, "a valid email query parameter is required")
		return
	}

	u, err := h.service.Lookup(r.Context(), email)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}
	core.OK(w, ToPublicProfile(u))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Page:   core.PageFromQuery(r, defaultUserPage, maxUserPage),
		Search: r.URL.Query().Get("search"),
		Role:   r.URL.Query().Get("role"),
	}

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.Paginated(w, ToUserResponseList(users), params.Page, total)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	reply(w)(h.service.GetUser(r.Context(), chi.URLParam(r, "userID")))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if h.decode(w, r, &req) {
		reply(w)(h.service.UpdateUser(r.Context(), chi.URLParam(r, "userID"), req))
	}
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRoleRequest
	if h.decode(w, r, &req) {
		reply(w)(h.service.UpdateUserRole(r.Context(), chi.URLParam(r, "userID"), req.Role))
	}
}

// DeleteUser soft deletes an account. Admins cannot remove other admins.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	err := h.service.CanDeleteUser(r.Context(), middleware.GetUserID(r.Context()), targetID)
	if errors.Is(err, core.ErrForbidden) {
		core.Forbidden(w, "insufficient permissions")
		return
	}
	if err == nil {
		err = h.service.DeleteUser(r.Context(), targetID)
	}
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}
	core.NoContent(w)
}
