package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redlattice/wsm/internal/core"
	"github.com/redlattice/wsm/internal/lifecycle"
)

type ProvisionWorkspaceRequest struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	OperationID *string `json:"operation_id,omitempty"`
	CPULimit    string  `json:"cpu_limit,omitempty"`
	MemoryLimit string  `json:"memory_limit,omitempty"`
	ExpiryHours int     `json:"expiry_hours,omitempty"`
}

type WorkspaceResponse struct {
	ID              string  `json:"id"`
	OwnerID         string  `json:"owner_id"`
	OperationID     *string `json:"operation_id,omitempty"`
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	RemoteSessionID string  `json:"remote_session_id"`
	Status          string  `json:"status"`
	AccessURL       string  `json:"access_url"`
	CPULimit        string  `json:"cpu_limit"`
	MemoryLimit     string  `json:"memory_limit"`
	ErrorMessage    *string `json:"error_message,omitempty"`
	CreatedAt       string  `json:"created_at"`
	StartedAt       *string `json:"started_at,omitempty"`
	ExpiresAt       string  `json:"expires_at"`
	TerminatedAt    *string `json:"terminated_at,omitempty"`
}

// ProvisionWorkspace creates a workspace for the calling user. The response
// arrives while the workspace is still starting; poll GET to observe the
// running or failed outcome.
func (a *API) ProvisionWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := actorID(r)
	if owner == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "X-User-ID header required"))
		return
	}

	var req ProvisionWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}
	if req.Type == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "type is required"))
		return
	}

	ws, err := a.service.ProvisionWorkspace(ctx, lifecycle.ProvisionRequest{
		OwnerID:     owner,
		OperationID: req.OperationID,
		Type:        core.WorkspaceType(req.Type),
		Name:        req.Name,
		CPULimit:    req.CPULimit,
		MemoryLimit: req.MemoryLimit,
		ExpiryHours: req.ExpiryHours,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, workspaceToResponse(ws))
}

// GetWorkspace gets a single workspace by id.
func (a *API) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	ws, err := a.service.GetWorkspace(ctx, actorID(r), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, workspaceToResponse(ws))
}

// ListWorkspaces lists all workspaces with cursor pagination.
func (a *API) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := parseLimit(r.URL.Query().Get("limit"), 20, 100)
	before := parseCursor(r.URL.Query().Get("cursor"))

	workspaces, err := a.service.ListWorkspaces(ctx, limit, before)
	if err != nil {
		a.log.Error("list workspaces failed")
		WriteDomainError(w, err)
		return
	}

	resp := make([]WorkspaceResponse, len(workspaces))
	for i := range workspaces {
		resp[i] = workspaceToResponse(&workspaces[i])
	}

	// Build next cursor
	var nextCursor string
	if len(workspaces) == limit {
		nextCursor = encodeCursor(workspaces[len(workspaces)-1].CreatedAt)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"workspaces":  resp,
		"next_cursor": nextCursor,
	})
}

// ListExpiringWorkspaces lists non-terminated workspaces close to expiry.
func (a *API) ListExpiringWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := a.service.GetExpiringSoonWorkspaces(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	resp := make([]WorkspaceResponse, len(workspaces))
	for i := range workspaces {
		resp[i] = workspaceToResponse(&workspaces[i])
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"workspaces": resp})
}

// TerminateWorkspace reclaims a workspace. Idempotent.
func (a *API) TerminateWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := a.service.TerminateWorkspace(ctx, actorID(r), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ExtendWorkspaceRequest struct {
	AdditionalHours int `json:"additional_hours"`
}

// ExtendWorkspace pushes the workspace expiry forward.
func (a *API) ExtendWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req ExtendWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}

	newExpiry, err := a.service.ExtendWorkspaceExpiry(ctx, actorID(r), id, req.AdditionalHours)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"expires_at": newExpiry.Format(time.RFC3339),
	})
}

type ShareWorkspaceRequest struct {
	UserID string `json:"user_id"`
}

// ShareWorkspace grants another user access to the workspace.
func (a *API) ShareWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req ShareWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}

	sess, err := a.service.ShareWorkspace(ctx, actorID(r), id, req.UserID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// RevokeSharing removes a share grant.
func (a *API) RevokeSharing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "user_id")

	if err := a.service.RevokeWorkspaceSharing(ctx, actorID(r), id, userID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUserUsage reports a user's current consumption against quota.
func (a *API) GetUserUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := a.service.GetUserResourceUsage(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, usage)
}

func workspaceToResponse(ws *core.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:              ws.ID,
		OwnerID:         ws.OwnerID,
		OperationID:     ws.OperationID,
		Type:            string(ws.Type),
		Name:            ws.Name,
		RemoteSessionID: ws.RemoteSessionID,
		Status:          string(ws.Status),
		AccessURL:       ws.AccessURL,
		CPULimit:        ws.CPULimit,
		MemoryLimit:     ws.MemoryLimit,
		ErrorMessage:    ws.ErrorMessage,
		CreatedAt:       ws.CreatedAt.Format(time.RFC3339),
		StartedAt:       formatTimePtr(ws.StartedAt),
		ExpiresAt:       ws.ExpiresAt.Format(time.RFC3339),
		TerminatedAt:    formatTimePtr(ws.TerminatedAt),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseLimit(s string, defaultVal, maxVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultVal
	}
	if n > maxVal {
		return maxVal
	}
	return n
}

func parseCursor(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := decodeCursor(s)
	if err != nil {
		return nil
	}
	return &t
}
