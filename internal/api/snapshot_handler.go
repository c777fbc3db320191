package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redlattice/wsm/internal/core"
)

type CreateSnapshotRequest struct {
	Name string `json:"name"`
}

type SnapshotResponse struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

// CreateSnapshot snapshots the workspace's remote session.
func (a *API) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
		return
	}

	rec, err := a.service.CreateSnapshot(ctx, actorID(r), id, req.Name)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, snapshotToResponse(*rec))
}

// ListSnapshots returns the workspace's snapshot records.
func (a *API) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := a.service.ListSnapshots(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	resp := make([]SnapshotResponse, len(snaps))
	for i, s := range snaps {
		resp[i] = snapshotToResponse(s)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"snapshots": resp})
}

// RestoreSnapshot restores the remote session from a named snapshot.
func (a *API) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	err := a.service.RestoreFromSnapshot(r.Context(), actorID(r),
		chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func snapshotToResponse(s core.SnapshotRecord) SnapshotResponse {
	return SnapshotResponse{
		Name:      s.Name,
		SizeBytes: s.SizeBytes,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}
