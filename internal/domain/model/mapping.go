package model

import "time"

// ProjectMapping binds a local project (for one provider) to a remote team,
// an optional remote project, and a sync direction. (ProjectID, Provider) is unique.
type ProjectMapping struct {
	ID              string
	ProjectID       string
	Provider        Provider
	ConnectionID    string
	TeamID          string
	TeamKey         string
	RemoteProjectID string // Empty when the mapping targets the whole team.
	SyncMode        SyncMode
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StateMapping is a materialized local status -> remote state row. The full
// set for a ProjectMapping is rebuilt whenever the mapping is refreshed.
type StateMapping struct {
	ID               string
	Provider         Provider
	ProjectMappingID string
	LocalStatus      string
	RemoteStateID    string
	RemoteStateType  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
