package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redlattice/wsm/internal/core"
)

// ErrNotFound is returned when a point lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// NotFound reports whether err is a missing-row error.
func NotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

const workspaceColumns = `id, owner_id, operation_id, type, name,
	remote_session_id, remote_container_id, remote_user_id,
	cpu_limit, memory_limit, status, access_url, internal_ip, error_message,
	created_at, started_at, expires_at, last_accessed_at, terminated_at, metadata`

type WorkspaceStore struct {
	pool *pgxpool.Pool
}

func NewWorkspaceStore(pool *pgxpool.Pool) *WorkspaceStore {
	return &WorkspaceStore{pool: pool}
}

func (s *WorkspaceStore) Create(ctx context.Context, ws *core.Workspace) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wsm.workspaces (
			id, owner_id, operation_id, type, name,
			remote_session_id, remote_container_id, remote_user_id,
			cpu_limit, memory_limit, status, access_url, internal_ip,
			created_at, expires_at, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		ws.ID, ws.OwnerID, ws.OperationID, ws.Type, ws.Name,
		ws.RemoteSessionID, ws.RemoteContainerID, ws.RemoteUserID,
		ws.CPULimit, ws.MemoryLimit, ws.Status, ws.AccessURL, ws.InternalIP,
		ws.CreatedAt, ws.ExpiresAt, ws.Metadata)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

func (s *WorkspaceStore) Get(ctx context.Context, id string) (*core.Workspace, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+workspaceColumns+` FROM wsm.workspaces WHERE id = $1`, id)
	return scanWorkspace(row)
}

// ListActiveByOwner returns the owner's non-terminated workspaces. Quota
// evaluation reads this fresh, never cached.
func (s *WorkspaceStore) ListActiveByOwner(ctx context.Context, ownerID string) ([]core.Workspace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+workspaceColumns+` FROM wsm.workspaces
		WHERE owner_id = $1 AND terminated_at IS NULL
		ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list active workspaces: %w", err)
	}
	return scanWorkspaces(rows)
}

// List returns workspaces ordered by creation time, newest first, for
// cursor pagination.
func (s *WorkspaceStore) List(ctx context.Context, limit int, before *time.Time) ([]core.Workspace, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if before != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT `+workspaceColumns+` FROM wsm.workspaces
			WHERE created_at < $1 ORDER BY created_at DESC LIMIT $2`, *before, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+workspaceColumns+` FROM wsm.workspaces
			ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return scanWorkspaces(rows)
}

// ListExpired returns non-terminated workspaces whose expiry has passed.
func (s *WorkspaceStore) ListExpired(ctx context.Context, now time.Time) ([]core.Workspace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+workspaceColumns+` FROM wsm.workspaces
		WHERE expires_at < $1 AND terminated_at IS NULL
		ORDER BY expires_at`, now)
	if err != nil {
		return nil, fmt.Errorf("list expired workspaces: %w", err)
	}
	return scanWorkspaces(rows)
}

// ListExpiringSoon returns non-terminated workspaces expiring within the window.
func (s *WorkspaceStore) ListExpiringSoon(ctx context.Context, now time.Time, window time.Duration) ([]core.Workspace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+workspaceColumns+` FROM wsm.workspaces
		WHERE expires_at <= $1 AND terminated_at IS NULL
		ORDER BY expires_at`, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("list expiring workspaces: %w", err)
	}
	return scanWorkspaces(rows)
}

// SetRunning moves a starting workspace to running. Returns false when the
// workspace already left the starting state, so a racing terminate wins.
func (s *WorkspaceStore) SetRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.workspaces SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4 AND terminated_at IS NULL`,
		id, core.WorkspaceRunning, startedAt, core.WorkspaceStarting)
	if err != nil {
		return false, fmt.Errorf("set running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetFailed moves a starting workspace to failed with a reason. Same guard
// as SetRunning.
func (s *WorkspaceStore) SetFailed(ctx context.Context, id, reason string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.workspaces SET status = $2, error_message = $3
		WHERE id = $1 AND status = $4 AND terminated_at IS NULL`,
		id, core.WorkspaceFailed, reason, core.WorkspaceStarting)
	if err != nil {
		return false, fmt.Errorf("set failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkTerminated stops the workspace and stamps terminated_at once.
// Returns false when the workspace was already terminated.
func (s *WorkspaceStore) MarkTerminated(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.workspaces SET status = $2, terminated_at = $3
		WHERE id = $1 AND terminated_at IS NULL`,
		id, core.WorkspaceStopped, now)
	if err != nil {
		return false, fmt.Errorf("mark terminated: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *WorkspaceStore) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wsm.workspaces SET expires_at = $2 WHERE id = $1`, id, expiresAt)
	if err != nil {
		return fmt.Errorf("update expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *WorkspaceStore) UpdateMetadata(ctx context.Context, id string, meta core.WorkspaceMetadata) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wsm.workspaces SET metadata = $2 WHERE id = $1`, id, meta)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *WorkspaceStore) TouchAccessed(ctx context.Context, id string, now time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE wsm.workspaces SET last_accessed_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("touch accessed: %w", err)
	}
	return nil
}

func scanWorkspaces(rows pgx.Rows) ([]core.Workspace, error) {
	defer rows.Close()
	var out []core.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ws)
	}
	return out, rows.Err()
}

func scanWorkspace(row pgx.Row) (*core.Workspace, error) {
	var ws core.Workspace
	err := row.Scan(
		&ws.ID, &ws.OwnerID, &ws.OperationID, &ws.Type, &ws.Name,
		&ws.RemoteSessionID, &ws.RemoteContainerID, &ws.RemoteUserID,
		&ws.CPULimit, &ws.MemoryLimit, &ws.Status, &ws.AccessURL, &ws.InternalIP,
		&ws.ErrorMessage, &ws.CreatedAt, &ws.StartedAt, &ws.ExpiresAt,
		&ws.LastAccessedAt, &ws.TerminatedAt, &ws.Metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	return &ws, nil
}
