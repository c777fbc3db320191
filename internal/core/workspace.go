package core

import "time"

type WorkspaceStatus string

const (
	WorkspaceStarting WorkspaceStatus = "starting"
	WorkspaceRunning  WorkspaceStatus = "running"
	WorkspaceStopped  WorkspaceStatus = "stopped"
	WorkspaceFailed   WorkspaceStatus = "failed"
)

type WorkspaceType string

const (
	TypeEditor   WorkspaceType = "editor"
	TypeBrowser  WorkspaceType = "browser"
	TypeDesktop  WorkspaceType = "desktop"
	TypeProxy    WorkspaceType = "proxy"
	TypeC2Client WorkspaceType = "c2client"
)

// ValidType reports whether t is one of the known workspace types.
func ValidType(t WorkspaceType) bool {
	switch t {
	case TypeEditor, TypeBrowser, TypeDesktop, TypeProxy, TypeC2Client:
		return true
	}
	return false
}

// ShareGrant records that a workspace was shared with another user,
// together with the session minted for them.
type ShareGrant struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	SharedAt  time.Time `json:"shared_at"`
}

// SnapshotRecord is a snapshot taken of a workspace's remote session.
type SnapshotRecord struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceMetadata holds the sharing grants and snapshot records of a
// workspace, persisted as a single JSONB column.
type WorkspaceMetadata struct {
	Shares    []ShareGrant     `json:"shares,omitempty"`
	Snapshots []SnapshotRecord `json:"snapshots,omitempty"`
}

type Workspace struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	OperationID *string       `json:"operation_id,omitempty"`
	Type        WorkspaceType `json:"type"`
	Name        string        `json:"name"`

	// Remote identifiers assigned by the orchestration API.
	RemoteSessionID   string `json:"remote_session_id"`
	RemoteContainerID string `json:"remote_container_id"`
	RemoteUserID      string `json:"remote_user_id"`

	// Resource grant, immutable after creation.
	CPULimit    string `json:"cpu_limit"`
	MemoryLimit string `json:"memory_limit"`

	Status       WorkspaceStatus `json:"status"`
	AccessURL    string          `json:"access_url"`
	InternalIP   string          `json:"internal_ip"`
	ErrorMessage *string         `json:"error_message,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	TerminatedAt   *time.Time `json:"terminated_at,omitempty"`

	Metadata WorkspaceMetadata `json:"metadata"`
}

// Terminated reports whether the workspace has been reclaimed. Termination
// is monotonic: once terminated_at is set the workspace is excluded from
// quota accounting and from reclamation sweeps forever.
func (w *Workspace) Terminated() bool {
	return w.TerminatedAt != nil
}

// Terminal reports whether the workspace status can no longer change.
func (w *Workspace) Terminal() bool {
	return w.Status == WorkspaceStopped || w.Status == WorkspaceFailed || w.Terminated()
}
