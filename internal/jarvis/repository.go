// AngelaMos | 2026
// repository.go

package jarvis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskispace/api/internal/core"
)

type Repository interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string, since *time.Time) ([]Conversation, error)
	TouchConversation(ctx context.Context, id string) error
	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) CreateConversation(ctx context.Context, c *Conversation) error {
	query := `
		INSERT INTO jarvis_conversations (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	if err := r.db.GetContext(ctx, c, query, c.ID, c.UserID, c.Title); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

func (r *repository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM jarvis_conversations
		WHERE id = $1`

	var c Conversation
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get conversation: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &c, nil
}

// ListConversations returns the user's conversations touched at or after
// since, newest first. A nil since returns all of them.
func (r *repository) ListConversations(
	ctx context.Context,
	userID string,
	since *time.Time,
) ([]Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM jarvis_conversations
		WHERE user_id = $1 AND ($2::timestamptz IS NULL OR updated_at >= $2)
		ORDER BY updated_at DESC`

	var conversations []Conversation
	if err := r.db.SelectContext(ctx, &conversations, query, userID, since); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return conversations, nil
}

func (r *repository) TouchConversation(ctx context.Context, id string) error {
	query := `UPDATE jarvis_conversations SET updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	return nil
}

func (r *repository) AddMessage(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO jarvis_messages (id, conversation_id, role, content, tokens, task_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID,
		m.ConversationID,
		m.Role,
		m.Content,
		m.Tokens,
		m.TaskID,
	)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}

	return nil
}

func (r *repository) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	query := `
		SELECT id, conversation_id, role, content, tokens, task_id, created_at
		FROM jarvis_messages
		WHERE conversation_id = $1
		ORDER BY created_at, id`

	var messages []Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}
