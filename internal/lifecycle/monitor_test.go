package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/redlattice/wsm/internal/core"
)

func TestMonitorRunning(t *testing.T) {
	orch := &fakeOrchestrator{statuses: []string{"creating", "pulling", "running"}}
	m, workspaces, _ := newTestManager(orch)

	ws := mustProvision(t, m, ProvisionRequest{OwnerID: "alice", Type: core.TypeDesktop})

	got := waitForStatus(t, workspaces, ws.ID, core.WorkspaceRunning)
	if got.StartedAt == nil {
		t.Error("started_at not recorded")
	}
	if got.ErrorMessage != nil {
		t.Errorf("error_message = %q on a running workspace", *got.ErrorMessage)
	}
}

func TestMonitorRemoteFailure(t *testing.T) {
	orch := &fakeOrchestrator{statuses: []string{"creating", "failed"}}
	m, workspaces, _ := newTestManager(orch)

	ws := mustProvision(t, m, ProvisionRequest{OwnerID: "alice", Type: core.TypeDesktop})

	got := waitForStatus(t, workspaces, ws.ID, core.WorkspaceFailed)
	if got.ErrorMessage == nil || *got.ErrorMessage != "Failed to start" {
		t.Errorf("error_message = %v, want %q", got.ErrorMessage, "Failed to start")
	}
	if got.StartedAt != nil {
		t.Error("started_at set on a failed workspace")
	}
}

func TestMonitorTimeout(t *testing.T) {
	// The remote session never leaves creating; the attempt budget runs
	// out and the workspace fails with the timeout reason.
	orch := &fakeOrchestrator{statuses: []string{"creating"}}
	m, workspaces, _ := newTestManager(orch)
	m.cfg.MaxPollAttempts = 3

	ws := mustProvision(t, m, ProvisionRequest{OwnerID: "alice", Type: core.TypeDesktop})

	got := waitForStatus(t, workspaces, ws.ID, core.WorkspaceFailed)
	if got.ErrorMessage == nil || *got.ErrorMessage != "Startup timeout exceeded" {
		t.Errorf("error_message = %v, want %q", got.ErrorMessage, "Startup timeout exceeded")
	}
}

func TestMonitorPollErrorsAreRetried(t *testing.T) {
	// Transient poll failures burn attempts but never fail the workspace
	// outright; a later successful poll still lands it in running.
	orch := &fakeOrchestrator{statuses: []string{"running"}, pollFailures: 3}
	m, workspaces, _ := newTestManager(orch)

	ws := mustProvision(t, m, ProvisionRequest{OwnerID: "alice", Type: core.TypeDesktop})

	waitForStatus(t, workspaces, ws.ID, core.WorkspaceRunning)
	orch.mu.Lock()
	polls := orch.polls
	orch.mu.Unlock()
	if polls < 4 {
		t.Errorf("polls = %d, want the failed attempts plus a success", polls)
	}
}

func TestMonitorLosesRaceToTerminate(t *testing.T) {
	// Terminate lands while the monitor is still polling. When the remote
	// session later reports running, the guarded update must refuse to
	// resurrect the stopped workspace.
	orch := &fakeOrchestrator{statuses: []string{"creating", "creating", "creating", "running"}}
	m, workspaces, _ := newTestManager(orch)
	m.cfg.PollInterval = 5 * time.Millisecond
	ctx := context.Background()

	ws := mustProvision(t, m, ProvisionRequest{OwnerID: "alice", Type: core.TypeDesktop})
	if err := m.TerminateWorkspace(ctx, "alice", ws.ID); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	// Wait until the monitor has seen the running status and given up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		orch.mu.Lock()
		done := orch.statusIdx >= len(orch.statuses)-1
		orch.mu.Unlock()
		if done {
			break
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	got, err := workspaces.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != core.WorkspaceStopped {
		t.Errorf("status = %s, want stopped; the monitor resurrected a terminated workspace", got.Status)
	}
	if got.StartedAt != nil {
		t.Error("started_at written after termination")
	}
}
