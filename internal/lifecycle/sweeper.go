package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/observability"
)

// Start runs both reclamation sweeps once (catch-up for anything that
// expired while the process was down) and then on the configured interval
// until Stop is called. One sweeper per process.
func (m *Manager) Start(ctx context.Context) {
	m.runSweeps(ctx)
	go m.sweepLoop(ctx)
}

// Stop halts the periodic sweep. Detached startup monitors run to
// completion on their own.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}

func (m *Manager) sweepLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.runSweeps(ctx)
		case <-m.stop:
			m.log.Info("cleanup scheduler stopping")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) runSweeps(ctx context.Context) {
	if n, err := m.CleanupExpiredWorkspaces(ctx); err != nil {
		m.log.Error("workspace sweep failed", zap.Error(err))
	} else if n > 0 {
		m.log.Info("expired workspaces reclaimed", zap.Int("count", n))
	}
	if n, err := m.CleanupExpiredSessions(ctx); err != nil {
		m.log.Error("session sweep failed", zap.Error(err))
	} else if n > 0 {
		m.log.Info("expired sessions reclaimed", zap.Int("count", n))
	}
}

// CleanupExpiredWorkspaces terminates every non-terminated workspace whose
// expiry has passed and returns how many were reclaimed. A failure on one
// workspace does not abort the rest. Also invokable as a manual admin
// trigger.
func (m *Manager) CleanupExpiredWorkspaces(ctx context.Context) (int, error) {
	start := m.now()
	defer func() {
		observability.SweepDuration.WithLabelValues("workspaces").Observe(time.Since(start).Seconds())
	}()

	expired, err := m.workspaces.ListExpired(ctx, m.now())
	if err != nil {
		return 0, core.NewAppError(core.ErrInternal, "failed to list expired workspaces")
	}

	count := 0
	for _, ws := range expired {
		if err := m.TerminateWorkspace(ctx, "", ws.ID); err != nil {
			m.log.Error("expired workspace termination failed",
				zap.String("workspace_id", ws.ID), zap.Error(err))
			continue
		}
		count++
	}
	observability.ReclaimedWorkspacesTotal.Add(float64(count))
	return count, nil
}

// CleanupExpiredSessions bulk-terminates sessions past their expiry and
// returns the count.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int, error) {
	start := m.now()
	defer func() {
		observability.SweepDuration.WithLabelValues("sessions").Observe(time.Since(start).Seconds())
	}()

	n, err := m.sessions.ExpireBefore(ctx, m.now())
	if err != nil {
		return 0, core.NewAppError(core.ErrInternal, "failed to expire sessions")
	}
	observability.ReclaimedSessionsTotal.Add(float64(n))
	return int(n), nil
}
