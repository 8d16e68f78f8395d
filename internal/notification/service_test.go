// AngelaMos | 2026
// service_test.go

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/events"
	"github.com/taskispace/api/internal/middleware"
)

type memRepo struct {
	mu    sync.Mutex
	items []*Notification
}

func (m *memRepo) Create(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = time.Now()
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *memRepo) List(ctx context.Context, userID string, params ListParams) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.items {
		if n.UserID != userID || (params.UnreadOnly && n.IsRead()) {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (m *memRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.UserID == userID && !item.IsRead() {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) MarkRead(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID {
			now := time.Now()
			n.ReadAt = &now
			return nil
		}
	}
	return fmt.Errorf("mark notification read: %w", core.ErrNotFound)
}

func (m *memRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	now := time.Now()
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead() {
			n.ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

func (m *memRepo) kinds(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n.Kind)
		}
	}
	sort.Strings(out)
	return out
}

func TestSubscribe_DeliversDomainEvents(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)
	bus := events.NewBus(nil)
	require.NoError(t, svc.Subscribe(bus))

	bus.Publish(events.TopicFriendRequested, events.FriendRequested{RequestID: "r1", FromUserID: "a", ToUserID: "b"})
	bus.Publish(events.TopicFriendAccepted, events.FriendAccepted{RequesterID: "a", AccepterID: "b"})
	bus.Publish(events.TopicNudged, events.Nudged{FromUserID: "a", ToUserID: "b"})
	bus.Publish(events.TopicJarvisTaskCreated, events.JarvisTaskCreated{UserID: "a", TaskID: "t1", Title: "Buy milk"})
	bus.Publish(events.TopicPlanChanged, events.PlanChanged{UserID: "c", Plan: "pro"})
	bus.Wait()

	assert.Equal(t, []string{KindFriendRequest, KindNudge}, repo.kinds("b"))
	assert.Equal(t, []string{KindFriendAccepted, KindJarvisTask}, repo.kinds("a"))
	assert.Equal(t, []string{KindPlanChanged}, repo.kinds("c"))
}

func TestSubscribe_NudgeDefaultMessage(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)
	bus := events.NewBus(nil)
	require.NoError(t, svc.Subscribe(bus))

	bus.Publish(events.TopicNudged, events.Nudged{FromUserID: "a", ToUserID: "b"})
	bus.Publish(events.TopicNudged, events.Nudged{FromUserID: "a", ToUserID: "c", Message: "standup!"})
	bus.Wait()

	items, _, err := svc.List(context.Background(), "b", ListParams{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "You got a nudge!", items[0].Message)
	require.NotNil(t, items[0].ActorID)
	assert.Equal(t, "a", *items[0].ActorID)

	items, _, err = svc.List(context.Background(), "c", ListParams{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "standup!", items[0].Message)
}

func TestNotify_SystemHasNoActor(t *testing.T) {
	svc := NewService(&memRepo{}, nil)

	n, err := svc.Notify(context.Background(), "a", "", KindJarvisTask, "done", "t1")
	require.NoError(t, err)
	assert.Nil(t, n.ActorID)
}

func withUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: userID, Role: "user"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestHandler_ReadFlow(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()
	first, err := svc.Notify(ctx, "u", "a", KindNudge, "one", "")
	require.NoError(t, err)
	_, err = svc.Notify(ctx, "u", "a", KindNudge, "two", "")
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(router, withUser("u"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/"+first.ID+"/read", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications/?unread=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data ListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Notifications, 1)
	assert.Equal(t, int64(1), body.Data.Unread)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	unread, err := repo.CountUnread(ctx, "u")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestHandler_MarkReadOtherUser(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)
	n, err := svc.Notify(context.Background(), "owner", "", KindNudge, "hi", "")
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(router, withUser("intruder"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/"+n.ID+"/read", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
