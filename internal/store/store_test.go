package store

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/redlattice/wsm/internal/core"
)

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("wsm"),
		postgres.WithUsername("wsm"),
		postgres.WithPassword("wsm_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections"),
		),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}
	defer pgContainer.Terminate(ctx)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	pool, err := NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect: %s", err)
	}
	defer pool.Close()

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("failed to run migrations: %s", err)
	}

	workspaces := NewWorkspaceStore(pool)
	sessions := NewSessionStore(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	ws := &core.Workspace{
		ID:                "ws-1",
		OwnerID:           "alice",
		Type:              core.TypeDesktop,
		Name:              "recon box",
		RemoteSessionID:   "rs-1",
		RemoteContainerID: "ctr-1",
		RemoteUserID:      "ru-1",
		CPULimit:          "2",
		MemoryLimit:       "4G",
		Status:            core.WorkspaceStarting,
		AccessURL:         "https://ws.test/rs-1",
		InternalIP:        "10.0.0.9",
		CreatedAt:         now,
		ExpiresAt:         now.Add(24 * time.Hour),
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		if err := workspaces.Create(ctx, ws); err != nil {
			t.Fatalf("failed to create workspace: %s", err)
		}
		got, err := workspaces.Get(ctx, "ws-1")
		if err != nil {
			t.Fatalf("failed to get workspace: %s", err)
		}
		if got.OwnerID != "alice" || got.Status != core.WorkspaceStarting {
			t.Errorf("unexpected workspace: %+v", got)
		}
		if !got.ExpiresAt.Equal(ws.ExpiresAt) {
			t.Errorf("expires_at = %v, want %v", got.ExpiresAt, ws.ExpiresAt)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := workspaces.Get(ctx, "no-such-id")
		if !NotFound(err) {
			t.Errorf("expected not-found, got %v", err)
		}
	})

	t.Run("SetRunningGuard", func(t *testing.T) {
		started := now.Add(10 * time.Second)
		updated, err := workspaces.SetRunning(ctx, "ws-1", started)
		if err != nil {
			t.Fatalf("set running: %s", err)
		}
		if !updated {
			t.Fatal("expected update on starting workspace")
		}
		// No longer starting: the guard refuses a second transition.
		updated, err = workspaces.SetRunning(ctx, "ws-1", started)
		if err != nil {
			t.Fatalf("set running again: %s", err)
		}
		if updated {
			t.Error("guard allowed a running workspace to transition again")
		}
		updated, err = workspaces.SetFailed(ctx, "ws-1", "too late")
		if err != nil {
			t.Fatalf("set failed: %s", err)
		}
		if updated {
			t.Error("guard allowed a running workspace to fail")
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		meta := core.WorkspaceMetadata{
			Shares: []core.ShareGrant{{UserID: "bob", SessionID: "sess-x", SharedAt: now}},
			Snapshots: []core.SnapshotRecord{
				{Name: "clean", SizeBytes: 2048, CreatedAt: now},
			},
		}
		if err := workspaces.UpdateMetadata(ctx, "ws-1", meta); err != nil {
			t.Fatalf("update metadata: %s", err)
		}
		got, err := workspaces.Get(ctx, "ws-1")
		if err != nil {
			t.Fatalf("get: %s", err)
		}
		if len(got.Metadata.Shares) != 1 || got.Metadata.Shares[0].UserID != "bob" {
			t.Errorf("shares = %+v", got.Metadata.Shares)
		}
		if len(got.Metadata.Snapshots) != 1 || got.Metadata.Snapshots[0].SizeBytes != 2048 {
			t.Errorf("snapshots = %+v", got.Metadata.Snapshots)
		}
	})

	t.Run("Sessions", func(t *testing.T) {
		sess := &core.Session{
			ID:             "sess-1",
			Token:          "tok-1",
			WorkspaceID:    "ws-1",
			UserID:         "alice",
			CreatedAt:      now,
			LastActivityAt: now,
			ExpiresAt:      now.Add(8 * time.Hour),
		}
		if err := sessions.Create(ctx, sess); err != nil {
			t.Fatalf("create session: %s", err)
		}
		got, err := sessions.GetByToken(ctx, "tok-1")
		if err != nil {
			t.Fatalf("get by token: %s", err)
		}
		if got.ID != "sess-1" || got.WorkspaceID != "ws-1" {
			t.Errorf("unexpected session: %+v", got)
		}

		bump := now.Add(time.Hour)
		if err := sessions.UpdateActivity(ctx, "tok-1", bump, bump.Add(8*time.Hour)); err != nil {
			t.Fatalf("update activity: %s", err)
		}
		got, _ = sessions.GetByToken(ctx, "tok-1")
		if !got.LastActivityAt.Equal(bump) {
			t.Errorf("last_activity_at = %v, want %v", got.LastActivityAt, bump)
		}
	})

	t.Run("TerminateCascade", func(t *testing.T) {
		second := &core.Session{
			ID: "sess-2", Token: "tok-2", WorkspaceID: "ws-1", UserID: "bob",
			CreatedAt: now, LastActivityAt: now, ExpiresAt: now.Add(8 * time.Hour),
		}
		if err := sessions.Create(ctx, second); err != nil {
			t.Fatalf("create session: %s", err)
		}

		termAt := now.Add(2 * time.Hour)
		terminated, err := workspaces.MarkTerminated(ctx, "ws-1", termAt)
		if err != nil {
			t.Fatalf("mark terminated: %s", err)
		}
		if !terminated {
			t.Fatal("expected first termination to update")
		}
		n, err := sessions.TerminateByWorkspace(ctx, "ws-1", termAt)
		if err != nil {
			t.Fatalf("cascade: %s", err)
		}
		if n != 2 {
			t.Errorf("cascaded %d sessions, want 2", n)
		}

		// terminated_at is written once.
		terminated, err = workspaces.MarkTerminated(ctx, "ws-1", termAt.Add(time.Hour))
		if err != nil {
			t.Fatalf("mark terminated again: %s", err)
		}
		if terminated {
			t.Error("second termination rewrote the row")
		}
		got, _ := workspaces.Get(ctx, "ws-1")
		if got.Status != core.WorkspaceStopped || !got.TerminatedAt.Equal(termAt) {
			t.Errorf("workspace after double terminate: status=%s terminated=%v", got.Status, got.TerminatedAt)
		}

		// Heartbeats on cascaded sessions fail.
		if err := sessions.UpdateActivity(ctx, "tok-1", termAt, termAt.Add(time.Hour)); !NotFound(err) {
			t.Errorf("heartbeat on terminated session: %v", err)
		}
	})

	t.Run("ExpiryFilters", func(t *testing.T) {
		expired := &core.Workspace{
			ID: "ws-expired", OwnerID: "alice", Type: core.TypeBrowser,
			RemoteSessionID: "rs-2", CPULimit: "1", MemoryLimit: "1G",
			Status: core.WorkspaceRunning, CreatedAt: now.Add(time.Second),
			ExpiresAt: now.Add(time.Hour),
		}
		fresh := &core.Workspace{
			ID: "ws-fresh", OwnerID: "alice", Type: core.TypeBrowser,
			RemoteSessionID: "rs-3", CPULimit: "1", MemoryLimit: "1G",
			Status: core.WorkspaceRunning, CreatedAt: now.Add(2 * time.Second),
			ExpiresAt: now.Add(72 * time.Hour),
		}
		for _, w := range []*core.Workspace{expired, fresh} {
			if err := workspaces.Create(ctx, w); err != nil {
				t.Fatalf("create: %s", err)
			}
		}

		list, err := workspaces.ListExpired(ctx, now.Add(2*time.Hour))
		if err != nil {
			t.Fatalf("list expired: %s", err)
		}
		if len(list) != 1 || list[0].ID != "ws-expired" {
			t.Errorf("expired = %+v", list)
		}

		soon, err := workspaces.ListExpiringSoon(ctx, now, 90*time.Minute)
		if err != nil {
			t.Fatalf("list expiring soon: %s", err)
		}
		if len(soon) != 1 || soon[0].ID != "ws-expired" {
			t.Errorf("expiring soon = %+v", soon)
		}

		active, err := workspaces.ListActiveByOwner(ctx, "alice")
		if err != nil {
			t.Fatalf("list active: %s", err)
		}
		// ws-1 was terminated above; only the two new ones remain.
		if len(active) != 2 {
			t.Errorf("active = %d, want 2", len(active))
		}
	})

	t.Run("ExpireSessionsBulk", func(t *testing.T) {
		stale := &core.Session{
			ID: "sess-stale", Token: "tok-stale", WorkspaceID: "ws-fresh", UserID: "alice",
			CreatedAt: now, LastActivityAt: now, ExpiresAt: now.Add(time.Minute),
		}
		if err := sessions.Create(ctx, stale); err != nil {
			t.Fatalf("create: %s", err)
		}
		n, err := sessions.ExpireBefore(ctx, now.Add(time.Hour))
		if err != nil {
			t.Fatalf("expire before: %s", err)
		}
		if n != 1 {
			t.Errorf("expired %d sessions, want 1", n)
		}
		n, err = sessions.ExpireBefore(ctx, now.Add(time.Hour))
		if err != nil {
			t.Fatalf("expire before again: %s", err)
		}
		if n != 0 {
			t.Errorf("second pass expired %d, want 0", n)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page, err := workspaces.List(ctx, 2, nil)
		if err != nil {
			t.Fatalf("list: %s", err)
		}
		if len(page) != 2 || page[0].ID != "ws-fresh" {
			t.Errorf("first page = %+v", page)
		}
		cursor := page[len(page)-1].CreatedAt
		rest, err := workspaces.List(ctx, 10, &cursor)
		if err != nil {
			t.Fatalf("list rest: %s", err)
		}
		if len(rest) != 1 || rest[0].ID != "ws-1" {
			t.Errorf("second page = %+v", rest)
		}
	})
}
