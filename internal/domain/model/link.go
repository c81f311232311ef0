package model

import "time"

// ExternalLink pairs one local task with one remote issue for one provider.
type ExternalLink struct {
	ID           string
	Provider     Provider
	ConnectionID string
	RemoteType   string // "issue" for the linear provider.
	RemoteID     string
	RemoteKey    string // Human identifier, e.g. "ENG-42".
	RemoteURL    string
	TaskID       string
	SyncState    SyncState
	LastSyncAt   *time.Time
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FieldState is a write-only snapshot of the last pushed value of one field.
// It is recorded on push and never consulted when deciding pull vs push.
type FieldState struct {
	ID              string
	ExternalLinkID  string
	FieldName       string
	LocalValue      string // JSON-encoded.
	RemoteValue     string // JSON-encoded.
	LocalUpdatedAt  time.Time
	RemoteUpdatedAt time.Time
}
