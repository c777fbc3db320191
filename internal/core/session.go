package core

import "time"

// Session is a bounded-lifetime access handle into a workspace. Clients
// present the opaque token, never the row id. A session's expiry is
// independent of its workspace's expiry; terminating a workspace
// cascade-terminates all of its live sessions.
type Session struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`

	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	TerminatedAt   *time.Time `json:"terminated_at,omitempty"`
}

func (s *Session) Terminated() bool {
	return s.TerminatedAt != nil
}
