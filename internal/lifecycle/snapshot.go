package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/core"
)

// CreateSnapshot snapshots the workspace's remote session and records the
// result in the workspace metadata. A remote failure leaves no local state.
func (m *Manager) CreateSnapshot(ctx context.Context, actorID, workspaceID, name string) (*core.SnapshotRecord, error) {
	if name == "" {
		return nil, core.NewAppError(core.ErrBadRequest, "snapshot name is required")
	}
	ws, err := m.getWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != actorID {
		return nil, core.NewAppError(core.ErrForbidden, "only the owner can snapshot a workspace")
	}
	if ws.Terminated() {
		return nil, core.NewAppError(core.ErrBadRequest, "workspace is terminated")
	}
	for _, snap := range ws.Metadata.Snapshots {
		if snap.Name == name {
			return nil, core.NewAppError(core.ErrBadRequest, "snapshot name already in use")
		}
	}

	result, err := m.orch.CreateSnapshot(ctx, ws.RemoteSessionID, name)
	if err != nil {
		m.log.Error("remote snapshot failed",
			zap.String("workspace_id", workspaceID), zap.String("name", name), zap.Error(err))
		return nil, core.NewAppError(core.ErrOrchestrator, "snapshot creation failed")
	}

	rec := core.SnapshotRecord{
		Name:      name,
		SizeBytes: result.SizeBytes,
		CreatedAt: m.now(),
	}
	meta := ws.Metadata
	meta.Snapshots = append(meta.Snapshots, rec)
	if err := m.workspaces.UpdateMetadata(ctx, workspaceID, meta); err != nil {
		return nil, core.NewAppError(core.ErrInternal, "failed to record snapshot")
	}

	m.log.Info("snapshot created",
		zap.String("workspace_id", workspaceID),
		zap.String("name", name),
		zap.Int64("size_bytes", rec.SizeBytes))
	return &rec, nil
}

// ListSnapshots returns the workspace's snapshot records.
func (m *Manager) ListSnapshots(ctx context.Context, actorID, workspaceID string) ([]core.SnapshotRecord, error) {
	ws, err := m.getWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != actorID {
		return nil, core.NewAppError(core.ErrForbidden, "only the owner can list snapshots")
	}
	return ws.Metadata.Snapshots, nil
}

// RestoreFromSnapshot restores the remote session from a named snapshot.
// The workspace's local status and expiry are unchanged.
func (m *Manager) RestoreFromSnapshot(ctx context.Context, actorID, workspaceID, name string) error {
	ws, err := m.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID != actorID {
		return core.NewAppError(core.ErrForbidden, "only the owner can restore a workspace")
	}
	if ws.Terminated() {
		return core.NewAppError(core.ErrBadRequest, "workspace is terminated")
	}
	found := false
	for _, snap := range ws.Metadata.Snapshots {
		if snap.Name == name {
			found = true
			break
		}
	}
	if !found {
		return core.NewAppError(core.ErrNotFound, "snapshot not found")
	}

	if err := m.orch.RestoreSnapshot(ctx, ws.RemoteSessionID, name); err != nil {
		m.log.Error("remote restore failed",
			zap.String("workspace_id", workspaceID), zap.String("name", name), zap.Error(err))
		return core.NewAppError(core.ErrOrchestrator, "snapshot restore failed")
	}

	m.log.Info("workspace restored from snapshot",
		zap.String("workspace_id", workspaceID), zap.String("name", name))
	return nil
}
