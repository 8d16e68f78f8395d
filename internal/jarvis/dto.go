// AngelaMos | 2026
// dto.go

package jarvis

import (
	"time"

	"github.com/samber/lo"

	"github.com/taskispace/api/internal/task"
)

type StartConversationRequest struct {
	Title   string `json:"title,omitempty"   validate:"max=120"`
	Message string `json:"message,omitempty" validate:"max=4000"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

type ConversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	TaskID    *string   `json:"task_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationDetailResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Messages     []MessageResponse    `json:"messages"`
}

type TurnResponse struct {
	Conversation *ConversationResponse `json:"conversation,omitempty"`
	UserMessage  MessageResponse       `json:"user_message"`
	Reply        MessageResponse       `json:"reply"`
	Task         *task.TaskResponse    `json:"task,omitempty"`
	TokensUsed   int                   `json:"tokens_used"`
}

func ToConversationResponse(c *Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ToConversationResponseList(conversations []Conversation) []ConversationResponse {
	return lo.Map(conversations, func(c Conversation, _ int) ConversationResponse {
		return ToConversationResponse(&c)
	})
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		TaskID:    m.TaskID,
		CreatedAt: m.CreatedAt,
	}
}

func ToTurnResponse(t *Turn) TurnResponse {
	out := TurnResponse{
		UserMessage: ToMessageResponse(t.UserMessage),
		Reply:       ToMessageResponse(t.AssistantMessage),
		TokensUsed:  t.TokensUsed,
	}
	if t.Task != nil {
		resp := task.ToTaskResponse(t.Task)
		out.Task = &resp
	}
	return out
}
