package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/store"
)

// CreateSession mints an access token for a user into a workspace. The
// session's expiry is independent of the workspace's.
func (m *Manager) CreateSession(ctx context.Context, workspaceID, userID string) (*core.Session, error) {
	if userID == "" {
		return nil, core.NewAppError(core.ErrBadRequest, "user id is required")
	}
	ws, err := m.getWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.Terminated() {
		return nil, core.NewAppError(core.ErrBadRequest, "workspace is terminated")
	}

	now := m.now()
	sess := &core.Session{
		ID:             core.NewID(),
		Token:          core.NewSessionToken(),
		WorkspaceID:    workspaceID,
		UserID:         userID,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.cfg.SessionTTL),
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, core.NewAppError(core.ErrInternal, "failed to create session")
	}
	if err := m.workspaces.TouchAccessed(ctx, workspaceID, now); err != nil {
		m.log.Warn("touch accessed failed", zap.String("workspace_id", workspaceID), zap.Error(err))
	}
	m.log.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("workspace_id", workspaceID),
		zap.String("user_id", userID))
	return sess, nil
}

// UpdateSessionActivity records a heartbeat: the session's inactivity
// timeout restarts and the workspace's last-accessed timestamp moves.
func (m *Manager) UpdateSessionActivity(ctx context.Context, token string) error {
	sess, err := m.sessions.GetByToken(ctx, token)
	if store.NotFound(err) {
		return core.NewAppError(core.ErrNotFound, "session not found")
	}
	if err != nil {
		return core.NewAppError(core.ErrInternal, "failed to load session")
	}
	if sess.Terminated() {
		return core.NewAppError(core.ErrNotFound, "session is terminated")
	}

	now := m.now()
	if err := m.sessions.UpdateActivity(ctx, token, now, now.Add(m.cfg.SessionTTL)); err != nil {
		if store.NotFound(err) {
			return core.NewAppError(core.ErrNotFound, "session not found")
		}
		return core.NewAppError(core.ErrInternal, "failed to update session")
	}
	if err := m.workspaces.TouchAccessed(ctx, sess.WorkspaceID, now); err != nil {
		m.log.Warn("touch accessed failed", zap.String("workspace_id", sess.WorkspaceID), zap.Error(err))
	}
	return nil
}

// TerminateSession ends a session by token. Terminating an
// already-terminated session is a no-op.
func (m *Manager) TerminateSession(ctx context.Context, token string) error {
	terminated, err := m.sessions.TerminateByToken(ctx, token, m.now())
	if err != nil {
		return core.NewAppError(core.ErrInternal, "failed to terminate session")
	}
	if !terminated {
		// Either already terminated (fine) or the token never existed.
		if _, err := m.sessions.GetByToken(ctx, token); store.NotFound(err) {
			return core.NewAppError(core.ErrNotFound, "session not found")
		}
	}
	return nil
}
