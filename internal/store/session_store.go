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

const sessionColumns = `id, token, workspace_id, user_id,
	created_at, last_activity_at, expires_at, terminated_at`

type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Create(ctx context.Context, sess *core.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wsm.sessions (id, token, workspace_id, user_id,
			created_at, last_activity_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		sess.ID, sess.Token, sess.WorkspaceID, sess.UserID,
		sess.CreatedAt, sess.LastActivityAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*core.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM wsm.sessions WHERE token = $1`, token)
	return scanSession(row)
}

// UpdateActivity records a heartbeat: bumps last_activity_at and pushes the
// expiry forward. Terminated sessions are not revived.
func (s *SessionStore) UpdateActivity(ctx context.Context, token string, now, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.sessions SET last_activity_at = $2, expires_at = $3
		WHERE token = $1 AND terminated_at IS NULL`,
		token, now, expiresAt)
	if err != nil {
		return fmt.Errorf("update session activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TerminateByToken stamps terminated_at once. Returns false when the
// session was already terminated.
func (s *SessionStore) TerminateByToken(ctx context.Context, token string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.sessions SET terminated_at = $2
		WHERE token = $1 AND terminated_at IS NULL`, token, now)
	if err != nil {
		return false, fmt.Errorf("terminate session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *SessionStore) TerminateByID(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.sessions SET terminated_at = $2
		WHERE id = $1 AND terminated_at IS NULL`, id, now)
	if err != nil {
		return false, fmt.Errorf("terminate session by id: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TerminateByWorkspace cascade-terminates every live session of a workspace.
func (s *SessionStore) TerminateByWorkspace(ctx context.Context, workspaceID string, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.sessions SET terminated_at = $2
		WHERE workspace_id = $1 AND terminated_at IS NULL`, workspaceID, now)
	if err != nil {
		return 0, fmt.Errorf("terminate workspace sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExpireBefore bulk-terminates live sessions whose expiry has passed.
func (s *SessionStore) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wsm.sessions SET terminated_at = $1
		WHERE expires_at < $1 AND terminated_at IS NULL`, now)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *SessionStore) ListActiveByWorkspace(ctx context.Context, workspaceID string) ([]core.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM wsm.sessions
		WHERE workspace_id = $1 AND terminated_at IS NULL
		ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace sessions: %w", err)
	}
	defer rows.Close()
	var out []core.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*core.Session, error) {
	var sess core.Session
	err := row.Scan(&sess.ID, &sess.Token, &sess.WorkspaceID, &sess.UserID,
		&sess.CreatedAt, &sess.LastActivityAt, &sess.ExpiresAt, &sess.TerminatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}
