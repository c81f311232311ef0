package model

import "time"

// SyncFilter narrows a sync invocation. Empty fields do not filter.
type SyncFilter struct {
	ConnectionID string
	TaskID       string
	ProjectID    string
}

// SyncResult summarizes one sync invocation.
type SyncResult struct {
	Scanned           int
	Pushed            int
	Pulled            int
	ConflictsResolved int
	Errors            []string
	At                time.Time
}

// SyncCandidate is a link selected for a sync pass together with the
// context needed to process it.
type SyncCandidate struct {
	Link          ExternalLink
	ProjectID     string
	CredentialRef string
}
