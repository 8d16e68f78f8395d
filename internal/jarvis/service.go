// AngelaMos | 2026
// service.go

package jarvis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/events"
	"github.com/taskispace/api/internal/task"
	"github.com/taskispace/api/internal/usage"
	"github.com/taskispace/api/internal/workspace"
)

const maxTitleRunes = 60

type Limiter interface {
	CheckLimit(ctx context.Context, userID string, key billing.LimitKey) usage.Result
	Consume(ctx context.Context, userID string, key billing.LimitKey, amount int64) usage.Result
	Record(ctx context.Context, userID string, metric usage.Metric, amount int64)
	ResolveLimit(ctx context.Context, userID string, key billing.LimitKey) billing.Limit
}

type TaskCreator interface {
	Create(ctx context.Context, ownerID string, in task.CreateInput) (*task.Task, error)
}

type WorkspaceLister interface {
	List(ctx context.Context, userID string) ([]workspace.Workspace, error)
}

type Service struct {
	repo       Repository
	assistant  Assistant
	limiter    Limiter
	tasks      TaskCreator
	workspaces WorkspaceLister
	bus        *events.Bus
	budget     int
	logger     *slog.Logger
	now        func() time.Time
}

type ServiceDeps struct {
	Repo       Repository
	Assistant  Assistant
	Limiter    Limiter
	Tasks      TaskCreator
	Workspaces WorkspaceLister
	Bus        *events.Bus
	// MaxContextTokens bounds the history sent upstream per turn.
	MaxContextTokens int
	Logger           *slog.Logger
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       deps.Repo,
		assistant:  deps.Assistant,
		limiter:    deps.Limiter,
		tasks:      deps.Tasks,
		workspaces: deps.Workspaces,
		bus:        deps.Bus,
		budget:     deps.MaxContextTokens,
		logger:     logger,
		now:        time.Now,
	}
}

// StartConversation opens a conversation, spending one of the month's
// conversation allowance.
func (s *Service) StartConversation(
	ctx context.Context,
	userID, title string,
) (*Conversation, error) {
	result := s.limiter.Consume(ctx, userID, billing.LimitJarvisConversationsPerMonth, 1)
	if !result.Allowed {
		return nil, result.Err()
	}

	c := &Conversation{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  strings.TrimSpace(title),
	}
	if c.Title == "" {
		c.Title = "New conversation"
	}

	if err := s.repo.CreateConversation(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// historySince is the oldest activity the user's plan lets them see.
func (s *Service) historySince(ctx context.Context, userID string) *time.Time {
	days, bounded := s.limiter.ResolveLimit(ctx, userID, billing.LimitConversationHistoryDays).Max()
	if !bounded {
		return nil
	}
	since := s.now().UTC().AddDate(0, 0, -int(days))
	return &since
}

func (s *Service) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	return s.repo.ListConversations(ctx, userID, s.historySince(ctx, userID))
}

// GetConversation returns a conversation the user owns, hiding ones that
// fell outside their plan's history window.
func (s *Service) GetConversation(
	ctx context.Context,
	userID, id string,
) (*Conversation, []Message, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}

	return c, messages, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*Conversation, error) {
	c, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("get conversation: %w", core.ErrNotFound)
	}
	if since := s.historySince(ctx, userID); since != nil && c.UpdatedAt.Before(*since) {
		return nil, fmt.Errorf("get conversation: %w", core.ErrNotFound)
	}
	return c, nil
}

type Turn struct {
	UserMessage      *Message
	AssistantMessage *Message
	Task             *task.Task
	TokensUsed       int
}

// SendMessage runs one exchange. The token allowance is checked before the
// upstream call and the actual spend recorded after it.
func (s *Service) SendMessage(
	ctx context.Context,
	userID, conversationID, content string,
) (*Turn, error) {
	ctx, span := core.StartSpan(ctx, "jarvis.SendMessage",
		attribute.String("user.id", userID),
		attribute.String("conversation.id", conversationID),
	)
	defer span.End()

	c, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	result := s.limiter.CheckLimit(ctx, userID, billing.LimitJarvisTokensPerMonth)
	if !result.Allowed {
		return nil, result.Err()
	}

	previous, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	history := make([]ChatMessage, 0, len(previous)+1)
	for _, m := range previous {
		history = append(history, ChatMessage{Role: m.Role, Content: m.Content})
	}
	history = append(history, ChatMessage{Role: RoleUser, Content: content})

	prompt := TrimHistory(ChatMessage{Role: RoleSystem, Content: systemPrompt}, history, s.budget)
	span.SetAttributes(attribute.Int("jarvis.context_messages", len(prompt)))

	completion, err := s.assistant.Complete(ctx, prompt)
	if err != nil {
		core.SetSpanError(ctx, err)
		s.logger.Error("assistant call failed",
			"user_id", userID,
			"conversation_id", c.ID,
			"error", err,
		)
		if errors.Is(err, ErrAssistantUnavailable) {
			return nil, fmt.Errorf("send message: %w", core.ErrUnavailable)
		}
		return nil, fmt.Errorf("send message: %w: %w", core.ErrUnavailable, err)
	}

	turn := &Turn{TokensUsed: completion.TotalTokens()}

	turn.UserMessage = &Message{
		ID:             uuid.New().String(),
		ConversationID: c.ID,
		Role:           RoleUser,
		Content:        content,
		Tokens:         EstimateTokens(content),
	}
	if err := s.repo.AddMessage(ctx, turn.UserMessage); err != nil {
		return nil, err
	}

	reply := completion.Reply
	if completion.Action != nil {
		created, note := s.applyAction(ctx, userID, completion.Action)
		turn.Task = created
		if note != "" {
			reply = strings.TrimSpace(reply + "\n\n" + note)
		}
	}

	turn.AssistantMessage = &Message{
		ID:             uuid.New().String(),
		ConversationID: c.ID,
		Role:           RoleAssistant,
		Content:        reply,
		Tokens:         completion.CompletionTokens,
	}
	if turn.Task != nil {
		turn.AssistantMessage.TaskID = &turn.Task.ID
	}
	if err := s.repo.AddMessage(ctx, turn.AssistantMessage); err != nil {
		return nil, err
	}

	s.limiter.Record(ctx, userID, usage.MetricJarvisTokens, int64(turn.TokensUsed))

	if err := s.repo.TouchConversation(ctx, c.ID); err != nil {
		s.logger.Warn("conversation touch failed", "conversation_id", c.ID, "error", err)
	}

	return turn, nil
}

// applyAction creates the requested task through the gated task service in
// the user's most recently used workspace. The note explains to the user
// why no task was created.
func (s *Service) applyAction(
	ctx context.Context,
	userID string,
	action *TaskAction,
) (*task.Task, string) {
	workspaces, err := s.workspaces.List(ctx, userID)
	if err != nil {
		s.logger.Error("workspace lookup failed", "user_id", userID, "error", err)
		return nil, "I couldn't create that task right now."
	}
	if len(workspaces) == 0 {
		return nil, "Create a workspace first and I'll add tasks to it."
	}

	priority := action.Priority
	switch priority {
	case task.PriorityLow, task.PriorityMedium, task.PriorityHigh:
	default:
		priority = ""
	}

	created, err := s.tasks.Create(ctx, userID, task.CreateInput{
		WorkspaceID: workspaces[0].ID,
		Title:       truncate(action.Title, 200),
		Description: action.Description,
		Priority:    priority,
		DueDate:     action.DueDate,
	})
	if err != nil {
		if appErr, ok := core.AsAppError(err); ok && errors.Is(err, core.ErrLimitReached) {
			return nil, appErr.Message
		}
		s.logger.Error("assistant task creation failed", "user_id", userID, "error", err)
		return nil, "I couldn't create that task right now."
	}

	s.bus.Publish(events.TopicJarvisTaskCreated, events.JarvisTaskCreated{
		UserID: userID,
		TaskID: created.ID,
		Title:  created.Title,
	})

	return created, ""
}

// TitleFrom derives a conversation title from its opening message.
func TitleFrom(message string) string {
	return truncate(strings.Join(strings.Fields(message), " "), maxTitleRunes)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
