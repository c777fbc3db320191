package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/redlattice/wsm/internal/api/middleware"
	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/lifecycle"
)

// Service is the lifecycle surface the handlers map onto. Implemented by
// lifecycle.Manager.
type Service interface {
	ProvisionWorkspace(ctx context.Context, req lifecycle.ProvisionRequest) (*core.Workspace, error)
	GetWorkspace(ctx context.Context, actorID, id string) (*core.Workspace, error)
	ListWorkspaces(ctx context.Context, limit int, before *time.Time) ([]core.Workspace, error)
	TerminateWorkspace(ctx context.Context, actorID, id string) error
	ExtendWorkspaceExpiry(ctx context.Context, actorID, id string, additionalHours int) (time.Time, error)
	ShareWorkspace(ctx context.Context, actorID, workspaceID, targetUserID string) (*core.Session, error)
	RevokeWorkspaceSharing(ctx context.Context, actorID, workspaceID, targetUserID string) error
	CreateSnapshot(ctx context.Context, actorID, workspaceID, name string) (*core.SnapshotRecord, error)
	ListSnapshots(ctx context.Context, actorID, workspaceID string) ([]core.SnapshotRecord, error)
	RestoreFromSnapshot(ctx context.Context, actorID, workspaceID, name string) error
	CreateSession(ctx context.Context, workspaceID, userID string) (*core.Session, error)
	UpdateSessionActivity(ctx context.Context, token string) error
	TerminateSession(ctx context.Context, token string) error
	GetUserResourceUsage(ctx context.Context, userID string) (*lifecycle.ResourceUsage, error)
	GetExpiringSoonWorkspaces(ctx context.Context) ([]core.Workspace, error)
	CleanupExpiredWorkspaces(ctx context.Context) (int, error)
	CleanupExpiredSessions(ctx context.Context) (int, error)
}

type API struct {
	pool    *pgxpool.Pool
	service Service
	log     *zap.Logger
}

func NewAPI(pool *pgxpool.Pool, service Service, log *zap.Logger) *API {
	return &API{
		pool:    pool,
		service: service,
		log:     log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer(a.log))
	r.Use(middleware.Logger)
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Health endpoints
	r.Get("/healthz", a.HealthHandler)
	r.Get("/readyz", a.ReadyHandler)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Workspaces
		r.Get("/workspaces", a.ListWorkspaces)
		r.Post("/workspaces", a.ProvisionWorkspace)
		r.Get("/workspaces/expiring", a.ListExpiringWorkspaces)
		r.Get("/workspaces/{id}", a.GetWorkspace)
		r.Delete("/workspaces/{id}", a.TerminateWorkspace)
		r.Post("/workspaces/{id}/extend", a.ExtendWorkspace)
		r.Post("/workspaces/{id}/share", a.ShareWorkspace)
		r.Delete("/workspaces/{id}/share/{user_id}", a.RevokeSharing)

		// Snapshots
		r.Get("/workspaces/{id}/snapshots", a.ListSnapshots)
		r.Post("/workspaces/{id}/snapshots", a.CreateSnapshot)
		r.Post("/workspaces/{id}/snapshots/{name}/restore", a.RestoreSnapshot)

		// Sessions
		r.Post("/sessions", a.CreateSession)
		r.Post("/sessions/{token}/heartbeat", a.SessionHeartbeat)
		r.Delete("/sessions/{token}", a.TerminateSession)

		// Usage
		r.Get("/users/{user_id}/usage", a.GetUserUsage)

		// Manual sweep triggers
		r.Post("/admin/cleanup/workspaces", a.CleanupWorkspaces)
		r.Post("/admin/cleanup/sessions", a.CleanupSessions)
	})

	return r
}

// actorID returns the caller identity set by the platform's auth layer.
func actorID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// encodeCursor encodes a timestamp as a base64 cursor.
func encodeCursor(t time.Time) string {
	return base64.StdEncoding.EncodeToString([]byte(t.Format(time.RFC3339Nano)))
}

// decodeCursor decodes a base64 cursor to a timestamp.
func decodeCursor(s string) (time.Time, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, string(b))
}
