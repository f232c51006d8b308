// Package session tracks workspace upload sessions mirrored from the
// server. It owns the canonical session list, the derived upload lock,
// and the normalization of loosely-shaped server metadata into
// canonical Session records.
package session

import "time"

// Status is the lifecycle state of an upload session as reported by
// the server.
type Status string

// Session lifecycle statuses. Completed and Error are terminal; no
// further transitions are expected after either.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusExtracted  Status = "extracted"
	StatusReady      Status = "ready"
	StatusSyncing    Status = "syncing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Type identifies how a session was created. It is set at creation and
// never changes.
type Type string

// Session types.
const (
	TypeZip  Type = "zip"
	TypeFile Type = "file"
)

// Placeholder session IDs. The client synthesizes a placeholder entry
// strictly between request-send and the first authoritative server
// record, which supersedes it outright.
const (
	PlaceholderZipID  = "uploading"
	PlaceholderFileID = "uploading-file"
)

// Session is one upload-and-synchronize unit of work tracked by a
// server-assigned identifier. Session entities are created by the
// server and mirrored client-side.
type Session struct {
	ID          string     `json:"session_id"`
	Status      Status     `json:"status"`
	Type        Type       `json:"type"`
	FileCount   int        `json:"file_count"`
	TotalSize   int64      `json:"total_size"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	// Error is present only when Status is StatusError.
	Error string `json:"error,omitempty"`

	// Placeholder marks a locally-synthesized record. Placeholders are
	// never sent to the server and are replaced, not merged, by the
	// next authoritative refresh.
	Placeholder bool `json:"-"`
}

// Active reports whether the session contributes to the upload lock.
func (s Session) Active() bool {
	return !s.Status.Terminal()
}

// Finalizable reports whether the session can be finalized for
// synchronization.
func (s Session) Finalizable() bool {
	switch s.Status {
	case StatusInProgress, StatusExtracted, StatusReady:
		return true
	}
	return false
}

// Cancelable reports whether the session can still be canceled. The
// server refuses cancellation once a session is syncing or completed.
func (s Session) Cancelable() bool {
	return s.Status != StatusSyncing && s.Status != StatusCompleted
}

// NewPlaceholder builds the local placeholder entry registered while
// an upload request is in flight.
func NewPlaceholder(id string) Session {
	now := time.Now().UTC()
	return Session{
		ID:          id,
		Status:      StatusInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
		Placeholder: true,
	}
}
