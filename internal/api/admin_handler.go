package api

import "net/http"

// CleanupWorkspaces triggers the expired-workspace sweep immediately.
func (a *API) CleanupWorkspaces(w http.ResponseWriter, r *http.Request) {
	n, err := a.service.CleanupExpiredWorkspaces(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"reclaimed": n})
}

// CleanupSessions triggers the expired-session sweep immediately.
func (a *API) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	n, err := a.service.CleanupExpiredSessions(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"reclaimed": n})
}
