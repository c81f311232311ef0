package model

import "time"

// Connection is an authenticated binding to one remote workspace.
// (Provider, WorkspaceID) is unique.
type Connection struct {
	ID            string
	Provider      Provider
	WorkspaceID   string
	WorkspaceName string
	AccountLabel  string
	CredentialRef string
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastSyncedAt  *time.Time
}

// ConnectionPublic is the caller-facing view of a Connection. It never
// carries the credential reference.
type ConnectionPublic struct {
	ID            string
	Provider      Provider
	WorkspaceID   string
	WorkspaceName string
	AccountLabel  string
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastSyncedAt  *time.Time
}

// Public strips the credential reference.
func (c Connection) Public() ConnectionPublic {
	return ConnectionPublic{
		ID:            c.ID,
		Provider:      c.Provider,
		WorkspaceID:   c.WorkspaceID,
		WorkspaceName: c.WorkspaceName,
		AccountLabel:  c.AccountLabel,
		Enabled:       c.Enabled,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		LastSyncedAt:  c.LastSyncedAt,
	}
}
