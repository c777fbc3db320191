package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/orchestrator"
	"github.com/redlattice/wsm/internal/quota"
	"github.com/redlattice/wsm/internal/store"
)

// In-memory store and orchestrator fakes. They reproduce the row-update
// guards of the real pgx stores so the monitor/terminate race behaves the
// same way in tests.

type fakeWorkspaceStore struct {
	mu        sync.Mutex
	items     map[string]*core.Workspace
	createErr error
}

func newFakeWorkspaceStore() *fakeWorkspaceStore {
	return &fakeWorkspaceStore{items: map[string]*core.Workspace{}}
}

func (f *fakeWorkspaceStore) Create(_ context.Context, ws *core.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *ws
	f.items[ws.ID] = &cp
	return nil
}

func (f *fakeWorkspaceStore) Get(_ context.Context, id string) (*core.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (f *fakeWorkspaceStore) ListActiveByOwner(_ context.Context, ownerID string) ([]core.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Workspace
	for _, ws := range f.items {
		if ws.OwnerID == ownerID && ws.TerminatedAt == nil {
			out = append(out, *ws)
		}
	}
	return out, nil
}

func (f *fakeWorkspaceStore) List(_ context.Context, limit int, _ *time.Time) ([]core.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Workspace
	for _, ws := range f.items {
		if len(out) == limit {
			break
		}
		out = append(out, *ws)
	}
	return out, nil
}

func (f *fakeWorkspaceStore) ListExpired(_ context.Context, now time.Time) ([]core.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Workspace
	for _, ws := range f.items {
		if ws.TerminatedAt == nil && ws.ExpiresAt.Before(now) {
			out = append(out, *ws)
		}
	}
	return out, nil
}

func (f *fakeWorkspaceStore) ListExpiringSoon(_ context.Context, now time.Time, window time.Duration) ([]core.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := now.Add(window)
	var out []core.Workspace
	for _, ws := range f.items {
		if ws.TerminatedAt == nil && !ws.ExpiresAt.After(cutoff) {
			out = append(out, *ws)
		}
	}
	return out, nil
}

func (f *fakeWorkspaceStore) SetRunning(_ context.Context, id string, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.items[id]
	if !ok || ws.Status != core.WorkspaceStarting || ws.TerminatedAt != nil {
		return false, nil
	}
	ws.Status = core.WorkspaceRunning
	ws.StartedAt = &startedAt
	return true, nil
}

func (f *fakeWorkspaceStore) SetFailed(_ context.Context, id, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.items[id]
	if !ok || ws.Status != core.WorkspaceStarting || ws.TerminatedAt != nil {
		return false, nil
	}
	ws.Status = core.WorkspaceFailed
	ws.ErrorMessage = &reason
	return true, nil
}

func (f *fakeWorkspaceStore) MarkTerminated(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.items[id]
	if !ok || ws.TerminatedAt != nil {
		return false, nil
	}
	ws.Status = core.WorkspaceStopped
	ws.TerminatedAt = &now
	return true, nil
}

func (f *fakeWorkspaceStore) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.items[id]
	if !ok {
		return store.ErrNotFound
	}
	ws.ExpiresAt = expiresAt
	return nil
}

func (f *fakeWorkspaceStore) UpdateMetadata(_ context.Context, id string, meta core.WorkspaceMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.items[id]
	if !ok {
		return store.ErrNotFound
	}
	ws.Metadata = meta
	return nil
}

func (f *fakeWorkspaceStore) TouchAccessed(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ws, ok := f.items[id]; ok {
		ws.LastAccessedAt = &now
	}
	return nil
}

func (f *fakeWorkspaceStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeSessionStore struct {
	mu    sync.Mutex
	items map[string]*core.Session // keyed by id
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{items: map[string]*core.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, sess *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sess
	f.items[sess.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByToken(_ context.Context, token string) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sess := range f.items {
		if sess.Token == token {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeSessionStore) UpdateActivity(_ context.Context, token string, now, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sess := range f.items {
		if sess.Token == token && sess.TerminatedAt == nil {
			sess.LastActivityAt = now
			sess.ExpiresAt = expiresAt
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeSessionStore) TerminateByToken(_ context.Context, token string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sess := range f.items {
		if sess.Token == token && sess.TerminatedAt == nil {
			sess.TerminatedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionStore) TerminateByID(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.items[id]
	if !ok || sess.TerminatedAt != nil {
		return false, nil
	}
	sess.TerminatedAt = &now
	return true, nil
}

func (f *fakeSessionStore) TerminateByWorkspace(_ context.Context, workspaceID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, sess := range f.items {
		if sess.WorkspaceID == workspaceID && sess.TerminatedAt == nil {
			sess.TerminatedAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, sess := range f.items {
		if sess.TerminatedAt == nil && sess.ExpiresAt.Before(now) {
			t := now
			sess.TerminatedAt = &t
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) ListActiveByWorkspace(_ context.Context, workspaceID string) ([]core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Session
	for _, sess := range f.items {
		if sess.WorkspaceID == workspaceID && sess.TerminatedAt == nil {
			out = append(out, *sess)
		}
	}
	return out, nil
}

type fakeOrchestrator struct {
	mu sync.Mutex

	// statuses is returned by successive GetSessionStatus calls; the last
	// entry repeats once exhausted. The first pollFailures calls return an
	// error instead.
	statuses     []string
	statusIdx    int
	pollFailures int

	createErr  error
	deleteErr  error
	snapErr    error
	restoreErr error

	created int
	deleted []string
	polls   int
}

var errRemote = errors.New("remote unavailable")

func (f *fakeOrchestrator) CreateSession(_ context.Context, imageRef, cpuLimit, memoryLimit string) (*orchestrator.RemoteSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &orchestrator.RemoteSession{
		SessionID:   core.NewID(),
		ContainerID: core.NewID(),
		UserID:      "remote-user",
		InternalIP:  "10.10.0.7",
	}, nil
}

func (f *fakeOrchestrator) GetSessionStatus(_ context.Context, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollFailures > 0 {
		f.pollFailures--
		return "", errRemote
	}
	if len(f.statuses) == 0 {
		return "creating", nil
	}
	status := f.statuses[f.statusIdx]
	if f.statusIdx < len(f.statuses)-1 {
		f.statusIdx++
	}
	return status, nil
}

func (f *fakeOrchestrator) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	return f.deleteErr
}

func (f *fakeOrchestrator) CreateSnapshot(_ context.Context, sessionID, name string) (*orchestrator.SnapshotResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return &orchestrator.SnapshotResult{SizeBytes: 4096}, nil
}

func (f *fakeOrchestrator) RestoreSnapshot(_ context.Context, sessionID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restoreErr
}

func testLimits() quota.Limits {
	return quota.Limits{
		MaxWorkspacesPerUser:  5,
		MaxCPUPerWorkspace:    4,
		MaxMemoryPerWorkspace: 8 << 30,
		MaxTotalCPUPerUser:    8,
		MaxTotalMemoryPerUser: 16 << 30,
	}
}

func newTestManager(orch Orchestrator) (*Manager, *fakeWorkspaceStore, *fakeSessionStore) {
	workspaces := newFakeWorkspaceStore()
	sessions := newFakeSessionStore()
	m := NewManager(workspaces, sessions, orch, testLimits(), Config{
		Images: map[core.WorkspaceType]string{
			core.TypeDesktop: "registry.test/ws/desktop:latest",
			core.TypeBrowser: "registry.test/ws/browser:latest",
		},
		AccessURLBase:   "https://ws.test/",
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 20,
		SweepInterval:   time.Hour,
	}, zap.NewNop())
	return m, workspaces, sessions
}
