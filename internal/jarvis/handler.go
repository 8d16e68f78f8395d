// AngelaMos | 2026
// handler.go

package jarvis

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

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
	r.Route("/jarvis/conversations", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Start)
		r.Get("/{conversationID}", h.Get)
		r.Post("/{conversationID}/messages", h.Send)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.service.ListConversations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToConversationResponseList(conversations))
}

// Start opens a conversation. With an opening message the first exchange
// runs in the same request.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	title := req.Title
	if title == "" && req.Message != "" {
		title = TitleFrom(req.Message)
	}

	c, err := h.service.StartConversation(r.Context(), userID, title)
	if err != nil {
		core.WriteError(w, err, "conversation")
		return
	}

	conversation := ToConversationResponse(c)
	if req.Message == "" {
		core.Created(w, conversation)
		return
	}

	turn, err := h.service.SendMessage(r.Context(), userID, c.ID, req.Message)
	if err != nil {
		core.WriteError(w, err, "conversation")
		return
	}

	resp := ToTurnResponse(turn)
	resp.Conversation = &conversation
	core.Created(w, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	c, messages, err := h.service.GetConversation(r.Context(), userID, chi.URLParam(r, "conversationID"))
	if err != nil {
		core.WriteError(w, err, "conversation")
		return
	}

	core.OK(w, ConversationDetailResponse{
		Conversation: ToConversationResponse(c),
		Messages: lo.Map(messages, func(m Message, _ int) MessageResponse {
			return ToMessageResponse(&m)
		}),
	})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	turn, err := h.service.SendMessage(r.Context(), userID, chi.URLParam(r, "conversationID"), req.Content)
	if err != nil {
		core.WriteError(w, err, "conversation")
		return
	}

	core.OK(w, ToTurnResponse(turn))
}
