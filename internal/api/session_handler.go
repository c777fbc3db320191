package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redlattice/wsm/internal/core"
)

type CreateSessionRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

type SessionResponse struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	ExpiresAt   string `json:"expires_at"`
}

// CreateSession mints an access token for the calling user.
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := actorID(r)
	if user == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "X-User-ID header required"))
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}
	if req.WorkspaceID == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "workspace_id is required"))
		return
	}

	sess, err := a.service.CreateSession(ctx, req.WorkspaceID, user)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// SessionHeartbeat restarts the session's inactivity timeout.
func (a *API) SessionHeartbeat(w http.ResponseWriter, r *http.Request) {
	if err := a.service.UpdateSessionActivity(r.Context(), chi.URLParam(r, "token")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TerminateSession ends a session by token.
func (a *API) TerminateSession(w http.ResponseWriter, r *http.Request) {
	if err := a.service.TerminateSession(r.Context(), chi.URLParam(r, "token")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionToResponse(sess *core.Session) SessionResponse {
	return SessionResponse{
		ID:          sess.ID,
		Token:       sess.Token,
		WorkspaceID: sess.WorkspaceID,
		UserID:      sess.UserID,
		ExpiresAt:   sess.ExpiresAt.Format(time.RFC3339),
	}
}
