package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/core"
)

// ShareWorkspace grants targetUserID access to the workspace: a session is
// minted for them and the grant is recorded in the workspace metadata.
// Only the owner may share.
func (m *Manager) ShareWorkspace(ctx context.Context, actorID, workspaceID, targetUserID string) (*core.Session, error) {
	if targetUserID == "" {
		return nil, core.NewAppError(core.ErrBadRequest, "target user id is required")
	}
	ws, err := m.getWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != actorID {
		return nil, core.NewAppError(core.ErrForbidden, "only the owner can share a workspace")
	}
	if ws.Terminated() {
		return nil, core.NewAppError(core.ErrBadRequest, "workspace is terminated")
	}
	if targetUserID == ws.OwnerID {
		return nil, core.NewAppError(core.ErrBadRequest, "cannot share a workspace with its owner")
	}
	if sharedWith(ws, targetUserID) {
		return nil, core.NewAppError(core.ErrBadRequest, "workspace already shared with this user")
	}

	sess, err := m.CreateSession(ctx, workspaceID, targetUserID)
	if err != nil {
		return nil, err
	}

	meta := ws.Metadata
	meta.Shares = append(meta.Shares, core.ShareGrant{
		UserID:    targetUserID,
		SessionID: sess.ID,
		SharedAt:  m.now(),
	})
	if err := m.workspaces.UpdateMetadata(ctx, workspaceID, meta); err != nil {
		// Roll the session back so a failed share leaves no access behind.
		if _, termErr := m.sessions.TerminateByID(ctx, sess.ID, m.now()); termErr != nil {
			m.log.Error("share rollback failed", zap.String("session_id", sess.ID), zap.Error(termErr))
		}
		return nil, core.NewAppError(core.ErrInternal, "failed to record share grant")
	}

	m.log.Info("workspace shared",
		zap.String("workspace_id", workspaceID),
		zap.String("target_user_id", targetUserID),
		zap.String("session_id", sess.ID))
	return sess, nil
}

// RevokeWorkspaceSharing removes a share grant and terminates the session
// minted for the target user. Only the owner may revoke.
func (m *Manager) RevokeWorkspaceSharing(ctx context.Context, actorID, workspaceID, targetUserID string) error {
	ws, err := m.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID != actorID {
		return core.NewAppError(core.ErrForbidden, "only the owner can revoke sharing")
	}

	meta := ws.Metadata
	idx := -1
	for i, grant := range meta.Shares {
		if grant.UserID == targetUserID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.NewAppError(core.ErrNotFound, "workspace is not shared with this user")
	}
	grant := meta.Shares[idx]

	if _, err := m.sessions.TerminateByID(ctx, grant.SessionID, m.now()); err != nil {
		return core.NewAppError(core.ErrInternal, "failed to terminate shared session")
	}

	meta.Shares = append(meta.Shares[:idx], meta.Shares[idx+1:]...)
	if err := m.workspaces.UpdateMetadata(ctx, workspaceID, meta); err != nil {
		return core.NewAppError(core.ErrInternal, "failed to remove share grant")
	}

	m.log.Info("workspace sharing revoked",
		zap.String("workspace_id", workspaceID),
		zap.String("target_user_id", targetUserID))
	return nil
}
