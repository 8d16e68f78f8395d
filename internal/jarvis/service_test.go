// AngelaMos | 2026
// service_test.go

package jarvis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/events"
	"github.com/taskispace/api/internal/task"
	"github.com/taskispace/api/internal/usage"
	"github.com/taskispace/api/internal/workspace"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

type memRepo struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	messages      map[string][]Message
	addErr        error
}

func newMemRepo() *memRepo {
	return &memRepo{
		conversations: map[string]*Conversation{},
		messages:      map[string][]Message{},
	}
}

func (m *memRepo) CreateConversation(ctx context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = fixedNow
	c.UpdatedAt = fixedNow
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *memRepo) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("get conversation: %w", core.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) ListConversations(
	ctx context.Context,
	userID string,
	since *time.Time,
) ([]Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Conversation
	for _, c := range m.conversations {
		if c.UserID != userID || (since != nil && c.UpdatedAt.Before(*since)) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memRepo) TouchConversation(ctx context.Context, id string) error {
	return nil
}

func (m *memRepo) AddMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	msg.CreatedAt = fixedNow
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

func (m *memRepo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages[conversationID]...), nil
}

func (m *memRepo) age(id string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[id].UpdatedAt = fixedNow.Add(-d)
}

type fakeLimiter struct {
	mu            sync.Mutex
	conversations int64
	convLimit     billing.Limit
	tokensDenied  bool
	historyDays   billing.Limit
	recorded      int64
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{
		convLimit:   billing.Bounded(3),
		historyDays: billing.Bounded(7),
	}
}

func (f *fakeLimiter) CheckLimit(ctx context.Context, userID string, key billing.LimitKey) usage.Result {
	if key == billing.LimitJarvisTokensPerMonth && f.tokensDenied {
		return usage.Result{
			Current: 10000,
			Limit:   billing.Bounded(10000),
			Reason:  "You've reached your jarvisTokensPerMonth limit of 10000.",
		}
	}
	return usage.Result{Allowed: true, Limit: billing.Unlimited()}
}

func (f *fakeLimiter) Consume(ctx context.Context, userID string, key billing.LimitKey, amount int64) usage.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.convLimit.Allows(f.conversations + amount - 1) {
		return usage.Result{
			Current: f.conversations,
			Limit:   f.convLimit,
			Reason:  "You've reached your jarvisConversationsPerMonth limit of 3.",
		}
	}
	f.conversations += amount
	return usage.Result{Allowed: true, Current: f.conversations, Limit: f.convLimit}
}

func (f *fakeLimiter) Record(ctx context.Context, userID string, metric usage.Metric, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded += amount
}

func (f *fakeLimiter) ResolveLimit(ctx context.Context, userID string, key billing.LimitKey) billing.Limit {
	return f.historyDays
}

type fakeTasks struct {
	err     error
	created []task.CreateInput
}

func (f *fakeTasks) Create(ctx context.Context, ownerID string, in task.CreateInput) (*task.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &task.Task{
		ID:          uuid.New().String(),
		WorkspaceID: in.WorkspaceID,
		OwnerID:     ownerID,
		Title:       in.Title,
		Priority:    in.Priority,
		Status:      task.StatusTodo,
	}, nil
}

type fakeWorkspaces []workspace.Workspace

func (f fakeWorkspaces) List(ctx context.Context, userID string) ([]workspace.Workspace, error) {
	return f, nil
}

type scriptedAssistant struct {
	completion *Completion
	err        error
	seen       [][]ChatMessage
}

func (s *scriptedAssistant) Complete(ctx context.Context, messages []ChatMessage) (*Completion, error) {
	s.seen = append(s.seen, messages)
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.completion
	return &cp, nil
}

type fixture struct {
	svc       *Service
	repo      *memRepo
	limiter   *fakeLimiter
	tasks     *fakeTasks
	assistant *scriptedAssistant
	bus       *events.Bus
}

func newFixture(workspaces ...workspace.Workspace) *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		limiter: newFakeLimiter(),
		tasks:   &fakeTasks{},
		assistant: &scriptedAssistant{completion: &Completion{
			Reply:            "Sure.",
			PromptTokens:     90,
			CompletionTokens: 10,
		}},
		bus: events.NewBus(nil),
	}
	f.svc = NewService(ServiceDeps{
		Repo:             f.repo,
		Assistant:        f.assistant,
		Limiter:          f.limiter,
		Tasks:            f.tasks,
		Workspaces:       fakeWorkspaces(workspaces),
		Bus:              f.bus,
		MaxContextTokens: 4000,
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestStartConversation_MonthlyAllowance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for range 3 {
		c, err := f.svc.StartConversation(ctx, "u", "")
		require.NoError(t, err)
		assert.Equal(t, "New conversation", c.Title)
	}

	_, err := f.svc.StartConversation(ctx, "u", "one more")
	require.ErrorIs(t, err, core.ErrLimitReached)
	assert.Len(t, f.repo.conversations, 3)
}

func TestSendMessage_RecordsTokens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "plans")
	require.NoError(t, err)

	turn, err := f.svc.SendMessage(ctx, "u", c.ID, "what should I do today?")
	require.NoError(t, err)

	assert.Equal(t, 100, turn.TokensUsed)
	assert.Equal(t, int64(100), f.limiter.recorded)
	assert.Equal(t, "Sure.", turn.AssistantMessage.Content)
	assert.Nil(t, turn.Task)

	stored, err := f.repo.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, RoleUser, stored[0].Role)
	assert.Equal(t, RoleAssistant, stored[1].Role)
}

func TestSendMessage_SendsHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, "u", c.ID, "first")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, "u", c.ID, "second")
	require.NoError(t, err)

	prompt := f.assistant.seen[1]
	require.Len(t, prompt, 4)
	assert.Equal(t, RoleSystem, prompt[0].Role)
	assert.Equal(t, "first", prompt[1].Content)
	assert.Equal(t, "second", prompt[3].Content)
}

func TestSendMessage_TokenAllowanceSpent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "")
	require.NoError(t, err)
	f.limiter.tokensDenied = true

	_, err = f.svc.SendMessage(ctx, "u", c.ID, "hello")
	require.ErrorIs(t, err, core.ErrLimitReached)

	assert.Empty(t, f.assistant.seen)
	assert.Zero(t, f.limiter.recorded)
	assert.Empty(t, f.repo.messages[c.ID])
}

func TestSendMessage_AssistantDown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "")
	require.NoError(t, err)

	f.assistant.err = fmt.Errorf("jarvis: %w", ErrAssistantUnavailable)
	_, err = f.svc.SendMessage(ctx, "u", c.ID, "hello")
	assert.ErrorIs(t, err, core.ErrUnavailable)

	f.assistant.err = errors.New("connection reset")
	_, err = f.svc.SendMessage(ctx, "u", c.ID, "hello")
	assert.ErrorIs(t, err, core.ErrUnavailable)

	assert.Zero(t, f.limiter.recorded)
	assert.Empty(t, f.repo.messages[c.ID])
}

func TestSendMessage_UnsavedTurnIsNotCharged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "")
	require.NoError(t, err)

	f.repo.addErr = errors.New("disk full")
	_, err = f.svc.SendMessage(ctx, "u", c.ID, "hello")
	require.Error(t, err)

	assert.Len(t, f.assistant.seen, 1)
	assert.Zero(t, f.limiter.recorded)
}

func TestSendMessage_CreatesTask(t *testing.T) {
	f := newFixture(workspace.Workspace{ID: "ws-1", OwnerID: "u", Name: "Home"})
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "")
	require.NoError(t, err)

	published := make(chan events.JarvisTaskCreated, 1)
	require.NoError(t, events.Subscribe(f.bus, events.TopicJarvisTaskCreated, func(e events.JarvisTaskCreated) {
		published <- e
	}))

	f.assistant.completion.Action = &TaskAction{Title: "Water the plants", Priority: "urgent"}
	turn, err := f.svc.SendMessage(ctx, "u", c.ID, "remind me to water the plants")
	require.NoError(t, err)
	f.bus.Wait()

	require.NotNil(t, turn.Task)
	require.Len(t, f.tasks.created, 1)
	assert.Equal(t, "ws-1", f.tasks.created[0].WorkspaceID)
	assert.Empty(t, f.tasks.created[0].Priority)
	require.NotNil(t, turn.AssistantMessage.TaskID)
	assert.Equal(t, turn.Task.ID, *turn.AssistantMessage.TaskID)

	select {
	case e := <-published:
		assert.Equal(t, turn.Task.ID, e.TaskID)
	case <-time.After(time.Second):
		t.Fatal("task event not delivered")
	}
}

func TestSendMessage_TaskActionWithoutWorkspace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "")
	require.NoError(t, err)

	f.assistant.completion.Action = &TaskAction{Title: "Call Sam"}
	turn, err := f.svc.SendMessage(ctx, "u", c.ID, "add task: call Sam")
	require.NoError(t, err)

	assert.Nil(t, turn.Task)
	assert.Contains(t, turn.AssistantMessage.Content, "Create a workspace first")
}

func TestSendMessage_TaskLimitExplained(t *testing.T) {
	f := newFixture(workspace.Workspace{ID: "ws-1", OwnerID: "u"})
	f.tasks.err = fmt.Errorf("create task: %w",
		core.LimitReachedError("You've reached your maxTasks limit of 50.", 50, 50))
	ctx := context.Background()
	c, err := f.svc.StartConversation(ctx, "u", "")
	require.NoError(t, err)

	f.assistant.completion.Action = &TaskAction{Title: "One more"}
	turn, err := f.svc.SendMessage(ctx, "u", c.ID, "add task: one more")
	require.NoError(t, err)

	assert.Nil(t, turn.Task)
	assert.Nil(t, turn.AssistantMessage.TaskID)
	assert.Contains(t, turn.AssistantMessage.Content, "maxTasks limit of 50")
}

func TestHistoryWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	recent, err := f.svc.StartConversation(ctx, "u", "recent")
	require.NoError(t, err)
	old, err := f.svc.StartConversation(ctx, "u", "old")
	require.NoError(t, err)
	f.repo.age(old.ID, 8*24*time.Hour)

	list, err := f.svc.ListConversations(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, recent.ID, list[0].ID)

	_, _, err = f.svc.GetConversation(ctx, "u", old.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.SendMessage(ctx, "u", old.ID, "still there?")
	assert.ErrorIs(t, err, core.ErrNotFound)

	f.limiter.historyDays = billing.Unlimited()
	list, err = f.svc.ListConversations(ctx, "u")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGetConversation_OtherUser(t *testing.T) {
	f := newFixture()
	c, err := f.svc.StartConversation(context.Background(), "owner", "")
	require.NoError(t, err)

	_, _, err = f.svc.GetConversation(context.Background(), "intruder", c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTitleFrom(t *testing.T) {
	assert.Equal(t, "plan my week", TitleFrom("  plan \n my   week "))
	assert.Len(t, []rune(TitleFrom(strings.Repeat("a", 100))), maxTitleRunes)
}
