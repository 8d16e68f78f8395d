// AngelaMos | 2026
// service_test.go

package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskispace/api/internal/billing"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/middleware"
	"github.com/taskispace/api/internal/usage"
)

type memRepo struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	tasks      map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		workspaces: map[string]*Workspace{},
		tasks:      map[string]int64{},
	}
}

func (m *memRepo) Create(ctx context.Context, w *Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.workspaces[w.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("get workspace: %w", core.ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

func (m *memRepo) ListByOwner(ctx context.Context, ownerID string) ([]Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Workspace
	for _, w := range m.workspaces {
		if w.OwnerID == ownerID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	list, _ := m.ListByOwner(ctx, ownerID)
	return int64(len(list)), nil
}

func (m *memRepo) Update(ctx context.Context, w *Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.workspaces[w.ID] = &cp
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id, ownerID string) (Removal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok || w.OwnerID != ownerID {
		return Removal{}, fmt.Errorf("delete workspace: %w", core.ErrNotFound)
	}
	delete(m.workspaces, id)
	return Removal{Removed: 1, TaskCount: m.tasks[id]}, nil
}

type usageCall struct {
	op     string
	metric usage.Metric
	amount int64
}

type fakeLimiter struct {
	result usage.Result
	calls  []usageCall
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{result: usage.Result{Allowed: true, Limit: billing.Bounded(3)}}
}

func (f *fakeLimiter) CheckLimit(ctx context.Context, userID string, key billing.LimitKey) usage.Result {
	return f.result
}

func (f *fakeLimiter) IncrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64) {
	f.calls = append(f.calls, usageCall{"inc", metric, amount})
}

func (f *fakeLimiter) DecrementUsage(ctx context.Context, userID string, metric usage.Metric, amount int64) {
	f.calls = append(f.calls, usageCall{"dec", metric, amount})
}

func TestCreate_RecordsOwnerTotal(t *testing.T) {
	repo := newMemRepo()
	limiter := allowAll()
	svc := NewService(repo, limiter, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", CreateWorkspaceRequest{Name: "Home"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", CreateWorkspaceRequest{Name: "Work"})
	require.NoError(t, err)

	assert.Equal(t, []usageCall{
		{"inc", usage.MetricWorkspacesCreated, 1},
		{"inc", usage.MetricWorkspacesCreated, 2},
	}, limiter.calls)
}

func TestCreate_DeniedDoesNotWrite(t *testing.T) {
	repo := newMemRepo()
	limiter := &fakeLimiter{result: usage.Result{
		Current: 3,
		Limit:   billing.Bounded(3),
		Reason:  "You've reached your maxWorkspaces limit of 3. Upgrade to Pro for more.",
	}}
	svc := NewService(repo, limiter, nil)

	_, err := svc.Create(context.Background(), "u1", CreateWorkspaceRequest{Name: "Extra"})
	require.ErrorIs(t, err, core.ErrLimitReached)
	assert.Empty(t, repo.workspaces)
	assert.Empty(t, limiter.calls)
}

func TestGet_HidesOtherOwners(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, allowAll(), nil)
	ws, err := svc.Create(context.Background(), "u1", CreateWorkspaceRequest{Name: "Home"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "u2", ws.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdate_AppliesPresentFields(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, allowAll(), nil)
	ws, err := svc.Create(context.Background(), "u1", CreateWorkspaceRequest{Name: "Home", Color: "#fff"})
	require.NoError(t, err)

	name := "House"
	updated, err := svc.Update(context.Background(), "u1", ws.ID, UpdateWorkspaceRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "House", updated.Name)
	assert.Equal(t, "#fff", updated.Color)
}

func TestDelete_FreesWorkspaceAndTaskQuota(t *testing.T) {
	repo := newMemRepo()
	limiter := allowAll()
	svc := NewService(repo, limiter, nil)
	ws, err := svc.Create(context.Background(), "u1", CreateWorkspaceRequest{Name: "Home"})
	require.NoError(t, err)
	repo.tasks[ws.ID] = 4
	limiter.calls = nil

	require.NoError(t, svc.Delete(context.Background(), "u1", ws.ID))

	assert.Equal(t, []usageCall{
		{"dec", usage.MetricWorkspacesCreated, 1},
		{"dec", usage.MetricTasksCreated, 4},
	}, limiter.calls)
}

func TestDelete_NotOwnerLeavesCounters(t *testing.T) {
	repo := newMemRepo()
	limiter := allowAll()
	svc := NewService(repo, limiter, nil)
	ws, err := svc.Create(context.Background(), "u1", CreateWorkspaceRequest{Name: "Home"})
	require.NoError(t, err)
	limiter.calls = nil

	err = svc.Delete(context.Background(), "u2", ws.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, limiter.calls)
}

func withUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: userID, Role: "user"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestHandler_CreateLimitReached(t *testing.T) {
	limiter := &fakeLimiter{result: usage.Result{
		Current: 3,
		Limit:   billing.Bounded(3),
		Reason:  "You've reached your maxWorkspaces limit of 3. Upgrade to Pro for more.",
	}}
	router := chi.NewRouter()
	NewHandler(NewService(newMemRepo(), limiter, nil)).RegisterRoutes(router, withUser("u1"))

	body := bytes.NewBufferString(`{"name":"Fourth"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/workspaces/", body))

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.InDelta(t, 3, resp["current"], 0)
	assert.InDelta(t, 3, resp["limit"], 0)
	assert.Equal(t, true, resp["upgrade"])

	errBody, ok := resp["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "LIMIT_REACHED", errBody["code"])
	assert.Contains(t, errBody["message"], "maxWorkspaces")
}

func TestHandler_CreateValidates(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(NewService(newMemRepo(), allowAll(), nil)).RegisterRoutes(router, withUser("u1"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/workspaces/", bytes.NewBufferString(`{"name":""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
