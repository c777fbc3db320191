// Package lifecycle owns the workspace state machine: provisioning, startup
// monitoring, expiry, sharing, snapshots, and the reclamation sweep. All
// coordination between concurrent callers happens through the stores; every
// mutation is a single row update keyed by id.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/observability"
	"github.com/redlattice/wsm/internal/orchestrator"
	"github.com/redlattice/wsm/internal/quota"
	"github.com/redlattice/wsm/internal/store"
)

// WorkspaceStore is the persistence contract the manager needs for
// workspaces. Implemented by store.WorkspaceStore.
type WorkspaceStore interface {
	Create(ctx context.Context, ws *core.Workspace) error
	Get(ctx context.Context, id string) (*core.Workspace, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]core.Workspace, error)
	List(ctx context.Context, limit int, before *time.Time) ([]core.Workspace, error)
	ListExpired(ctx context.Context, now time.Time) ([]core.Workspace, error)
	ListExpiringSoon(ctx context.Context, now time.Time, window time.Duration) ([]core.Workspace, error)
	SetRunning(ctx context.Context, id string, startedAt time.Time) (bool, error)
	SetFailed(ctx context.Context, id, reason string) (bool, error)
	MarkTerminated(ctx context.Context, id string, now time.Time) (bool, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	UpdateMetadata(ctx context.Context, id string, meta core.WorkspaceMetadata) error
	TouchAccessed(ctx context.Context, id string, now time.Time) error
}

// SessionStore is the persistence contract for access sessions.
// Implemented by store.SessionStore.
type SessionStore interface {
	Create(ctx context.Context, sess *core.Session) error
	GetByToken(ctx context.Context, token string) (*core.Session, error)
	UpdateActivity(ctx context.Context, token string, now, expiresAt time.Time) error
	TerminateByToken(ctx context.Context, token string, now time.Time) (bool, error)
	TerminateByID(ctx context.Context, id string, now time.Time) (bool, error)
	TerminateByWorkspace(ctx context.Context, workspaceID string, now time.Time) (int64, error)
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
	ListActiveByWorkspace(ctx context.Context, workspaceID string) ([]core.Session, error)
}

// Orchestrator is the remote container-orchestration API surface the
// manager drives. Implemented by orchestrator.Client.
type Orchestrator interface {
	CreateSession(ctx context.Context, imageRef, cpuLimit, memoryLimit string) (*orchestrator.RemoteSession, error)
	GetSessionStatus(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	CreateSnapshot(ctx context.Context, sessionID, name string) (*orchestrator.SnapshotResult, error)
	RestoreSnapshot(ctx context.Context, sessionID, name string) error
}

type Config struct {
	// Images maps workspace types to container image refs.
	Images map[core.WorkspaceType]string

	// AccessURLBase is prepended to the remote session id to form the
	// externally reachable URL.
	AccessURLBase string

	DefaultCPULimit    string
	DefaultMemoryLimit string

	DefaultExpiry  time.Duration
	SessionTTL     time.Duration
	ExpiringWindow time.Duration

	// Startup monitor: poll every PollInterval, up to MaxPollAttempts.
	PollInterval    time.Duration
	MaxPollAttempts int

	SweepInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.DefaultCPULimit == "" {
		c.DefaultCPULimit = "1"
	}
	if c.DefaultMemoryLimit == "" {
		c.DefaultMemoryLimit = "2048M"
	}
	if c.DefaultExpiry == 0 {
		c.DefaultExpiry = 24 * time.Hour
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 8 * time.Hour
	}
	if c.ExpiringWindow == 0 {
		c.ExpiringWindow = time.Hour
	}
	if c.PollInterval == 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.MaxPollAttempts == 0 {
		c.MaxPollAttempts = 20
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 5 * time.Minute
	}
}

type Manager struct {
	workspaces WorkspaceStore
	sessions   SessionStore
	orch       Orchestrator
	evaluator  *quota.Evaluator
	cfg        Config
	log        *zap.Logger

	now func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewManager(workspaces WorkspaceStore, sessions SessionStore, orch Orchestrator,
	limits quota.Limits, cfg Config, log *zap.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		workspaces: workspaces,
		sessions:   sessions,
		orch:       orch,
		evaluator:  quota.NewEvaluator(limits),
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ProvisionRequest describes a workspace to create on behalf of a user.
type ProvisionRequest struct {
	OwnerID     string
	OperationID *string
	Type        core.WorkspaceType
	Name        string
	CPULimit    string
	MemoryLimit string
	ExpiryHours int
}

// ProvisionWorkspace checks quota, creates the remote session and persists
// the workspace in starting status. It returns before the remote session
// is up; a detached monitor drives the starting -> running/failed
// transition, observable by reading the workspace record.
func (m *Manager) ProvisionWorkspace(ctx context.Context, req ProvisionRequest) (*core.Workspace, error) {
	if req.OwnerID == "" {
		return nil, core.NewAppError(core.ErrBadRequest, "owner id is required")
	}
	if !core.ValidType(req.Type) {
		return nil, core.NewAppError(core.ErrBadRequest, fmt.Sprintf("unknown workspace type %q", req.Type))
	}
	imageRef, ok := m.cfg.Images[req.Type]
	if !ok {
		return nil, core.NewAppError(core.ErrBadRequest, fmt.Sprintf("no image configured for type %q", req.Type))
	}
	if req.CPULimit == "" {
		req.CPULimit = m.cfg.DefaultCPULimit
	}
	if req.MemoryLimit == "" {
		req.MemoryLimit = m.cfg.DefaultMemoryLimit
	}

	active, err := m.workspaces.ListActiveByOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, core.NewAppError(core.ErrInternal, "failed to read current usage")
	}
	if err := m.evaluator.Check(active, req.CPULimit, req.MemoryLimit); err != nil {
		observability.ProvisionTotal.WithLabelValues(string(req.Type), "quota_rejected").Inc()
		return nil, err
	}

	remote, err := m.orch.CreateSession(ctx, imageRef, req.CPULimit, req.MemoryLimit)
	if err != nil {
		observability.ProvisionTotal.WithLabelValues(string(req.Type), "orchestrator_error").Inc()
		m.log.Error("remote session create failed", zap.String("owner_id", req.OwnerID), zap.Error(err))
		return nil, core.NewAppError(core.ErrOrchestrator, "orchestration API unavailable")
	}

	now := m.now()
	expiry := m.cfg.DefaultExpiry
	if req.ExpiryHours > 0 {
		expiry = time.Duration(req.ExpiryHours) * time.Hour
	}
	ws := &core.Workspace{
		ID:                core.NewID(),
		OwnerID:           req.OwnerID,
		OperationID:       req.OperationID,
		Type:              req.Type,
		Name:              req.Name,
		RemoteSessionID:   remote.SessionID,
		RemoteContainerID: remote.ContainerID,
		RemoteUserID:      remote.UserID,
		CPULimit:          req.CPULimit,
		MemoryLimit:       req.MemoryLimit,
		Status:            core.WorkspaceStarting,
		AccessURL:         m.cfg.AccessURLBase + remote.SessionID,
		InternalIP:        remote.InternalIP,
		CreatedAt:         now,
		ExpiresAt:         now.Add(expiry),
	}
	if err := m.workspaces.Create(ctx, ws); err != nil {
		// Don't leak the remote session when the local insert fails.
		if delErr := m.orch.DeleteSession(ctx, remote.SessionID); delErr != nil {
			m.log.Warn("orphaned remote session cleanup failed",
				zap.String("remote_session_id", remote.SessionID), zap.Error(delErr))
		}
		observability.ProvisionTotal.WithLabelValues(string(req.Type), "store_error").Inc()
		return nil, core.NewAppError(core.ErrInternal, "failed to persist workspace")
	}

	observability.ProvisionTotal.WithLabelValues(string(req.Type), "accepted").Inc()
	observability.WorkspaceLogger(m.log, ws.ID, ws.OwnerID).Info("workspace provisioning started",
		zap.String("type", string(ws.Type)),
		zap.Time("expires_at", ws.ExpiresAt))

	go m.monitorStartup(ws.ID, remote.SessionID)

	return ws, nil
}

// GetWorkspace returns a workspace by id. When actorID is non-empty the
// caller must be the owner or a share target.
func (m *Manager) GetWorkspace(ctx context.Context, actorID, id string) (*core.Workspace, error) {
	ws, err := m.getWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != "" && ws.OwnerID != actorID && !sharedWith(ws, actorID) {
		return nil, core.NewAppError(core.ErrForbidden, "not your workspace")
	}
	return ws, nil
}

// ListWorkspaces returns workspaces newest-first for cursor pagination.
func (m *Manager) ListWorkspaces(ctx context.Context, limit int, before *time.Time) ([]core.Workspace, error) {
	list, err := m.workspaces.List(ctx, limit, before)
	if err != nil {
		return nil, core.NewAppError(core.ErrInternal, "failed to list workspaces")
	}
	return list, nil
}

// TerminateWorkspace reclaims a workspace: best-effort remote delete, mark
// the row stopped, cascade-terminate its sessions. Calling it twice is a
// safe no-op; terminated_at is written at most once. An empty actorID skips
// the ownership check (internal sweep, admin trigger).
func (m *Manager) TerminateWorkspace(ctx context.Context, actorID, id string) error {
	ws, err := m.getWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if actorID != "" && ws.OwnerID != actorID {
		return core.NewAppError(core.ErrForbidden, "not your workspace")
	}

	if ws.RemoteSessionID != "" {
		if err := m.orch.DeleteSession(ctx, ws.RemoteSessionID); err != nil {
			// Best-effort: local reclamation proceeds regardless.
			m.log.Warn("remote session delete failed",
				zap.String("workspace_id", id),
				zap.String("remote_session_id", ws.RemoteSessionID),
				zap.Error(err))
		}
	}

	now := m.now()
	terminated, err := m.workspaces.MarkTerminated(ctx, id, now)
	if err != nil {
		return core.NewAppError(core.ErrInternal, "failed to terminate workspace")
	}
	if terminated {
		observability.WorkspaceStateTransitions.
			WithLabelValues(string(ws.Status), string(core.WorkspaceStopped)).Inc()
	}

	n, err := m.sessions.TerminateByWorkspace(ctx, id, now)
	if err != nil {
		m.log.Error("session cascade failed", zap.String("workspace_id", id), zap.Error(err))
	}
	m.log.Info("workspace terminated",
		zap.String("workspace_id", id),
		zap.Bool("already_terminated", !terminated),
		zap.Int64("sessions_cascaded", n))
	return nil
}

// ExtendWorkspaceExpiry pushes the expiry forward by additionalHours.
func (m *Manager) ExtendWorkspaceExpiry(ctx context.Context, actorID, id string, additionalHours int) (time.Time, error) {
	if additionalHours <= 0 {
		return time.Time{}, core.NewAppError(core.ErrBadRequest, "additional hours must be positive")
	}
	ws, err := m.getWorkspace(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if actorID != "" && ws.OwnerID != actorID {
		return time.Time{}, core.NewAppError(core.ErrForbidden, "not your workspace")
	}
	if ws.Terminated() {
		return time.Time{}, core.NewAppError(core.ErrBadRequest, "workspace is terminated")
	}
	newExpiry := ws.ExpiresAt.Add(time.Duration(additionalHours) * time.Hour)
	if err := m.workspaces.UpdateExpiry(ctx, id, newExpiry); err != nil {
		return time.Time{}, core.NewAppError(core.ErrInternal, "failed to extend expiry")
	}
	m.log.Info("workspace expiry extended",
		zap.String("workspace_id", id),
		zap.Int("additional_hours", additionalHours),
		zap.Time("expires_at", newExpiry))
	return newExpiry, nil
}

// ResourceUsage is a user's current consumption plus the deployment limits.
type ResourceUsage struct {
	quota.Usage
	Quota quota.Limits `json:"quota"`
}

// GetUserResourceUsage sums the user's non-terminated workspaces.
func (m *Manager) GetUserResourceUsage(ctx context.Context, userID string) (*ResourceUsage, error) {
	active, err := m.workspaces.ListActiveByOwner(ctx, userID)
	if err != nil {
		return nil, core.NewAppError(core.ErrInternal, "failed to read current usage")
	}
	return &ResourceUsage{Usage: quota.Sum(active), Quota: m.evaluator.Limits()}, nil
}

// GetExpiringSoonWorkspaces lists non-terminated workspaces that will
// expire within the configured window.
func (m *Manager) GetExpiringSoonWorkspaces(ctx context.Context) ([]core.Workspace, error) {
	list, err := m.workspaces.ListExpiringSoon(ctx, m.now(), m.cfg.ExpiringWindow)
	if err != nil {
		return nil, core.NewAppError(core.ErrInternal, "failed to list expiring workspaces")
	}
	return list, nil
}

func (m *Manager) getWorkspace(ctx context.Context, id string) (*core.Workspace, error) {
	ws, err := m.workspaces.Get(ctx, id)
	if store.NotFound(err) {
		return nil, core.NewAppError(core.ErrNotFound, "workspace not found")
	}
	if err != nil {
		return nil, core.NewAppError(core.ErrInternal, "failed to load workspace")
	}
	return ws, nil
}

func sharedWith(ws *core.Workspace, userID string) bool {
	for _, grant := range ws.Metadata.Shares {
		if grant.UserID == userID {
			return true
		}
	}
	return false
}
