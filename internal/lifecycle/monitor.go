package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/observability"
)

// Remote status strings reported by the orchestration API.
const (
	remoteStatusRunning = "running"
	remoteStatusFailed  = "failed"
)

const (
	reasonStartupFailed  = "Failed to start"
	reasonStartupTimeout = "Startup timeout exceeded"
)

// monitorStartup polls the remote session until it reports running or
// failed, or the attempt budget runs out. It runs detached from the
// provisioning caller and never propagates errors; outcomes are persisted
// on the workspace row. Monitors for different workspaces are fully
// independent.
func (m *Manager) monitorStartup(workspaceID, remoteSessionID string) {
	log := m.log.With(
		zap.String("workspace_id", workspaceID),
		zap.String("remote_session_id", remoteSessionID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("startup monitor panicked", zap.Any("panic", r))
		}
	}()

	start := m.now()
	for attempt := 1; attempt <= m.cfg.MaxPollAttempts; attempt++ {
		time.Sleep(m.cfg.PollInterval)

		ctx := context.Background()
		status, err := m.orch.GetSessionStatus(ctx, remoteSessionID)
		if err != nil {
			log.Warn("status poll failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		switch status {
		case remoteStatusRunning:
			updated, err := m.workspaces.SetRunning(ctx, workspaceID, m.now())
			if err != nil {
				log.Error("set running failed", zap.Error(err))
				return
			}
			if !updated {
				// The workspace left starting while we were polling: a
				// terminate won the race. Do not resurrect it.
				log.Info("workspace no longer starting, monitor aborting")
				return
			}
			observability.StartupDuration.Observe(m.now().Sub(start).Seconds())
			observability.WorkspaceStateTransitions.
				WithLabelValues(string(core.WorkspaceStarting), string(core.WorkspaceRunning)).Inc()
			log.Info("workspace running", zap.Int("attempt", attempt))
			return
		case remoteStatusFailed:
			m.failStartup(ctx, workspaceID, reasonStartupFailed, log)
			return
		}
		// Any other status: keep polling.
	}

	observability.StartupTimeoutTotal.Inc()
	m.failStartup(context.Background(), workspaceID, reasonStartupTimeout, log)
}

func (m *Manager) failStartup(ctx context.Context, workspaceID, reason string, log *zap.Logger) {
	updated, err := m.workspaces.SetFailed(ctx, workspaceID, reason)
	if err != nil {
		log.Error("set failed failed", zap.Error(err))
		return
	}
	if !updated {
		log.Info("workspace no longer starting, monitor aborting")
		return
	}
	observability.WorkspaceStateTransitions.
		WithLabelValues(string(core.WorkspaceStarting), string(core.WorkspaceFailed)).Inc()
	log.Warn("workspace startup failed", zap.String("reason", reason))
}
