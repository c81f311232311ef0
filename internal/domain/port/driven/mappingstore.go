package driven

import (
	"context"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// ProjectMappingStore defines the driven port for project mapping persistence.
type ProjectMappingStore interface {
	// Upsert inserts by (project_id, provider) or overwrites connection, team,
	// remote project and sync mode on conflict, always stamping updated_at.
	Upsert(ctx context.Context, m model.ProjectMapping) (model.ProjectMapping, error)
	// UpsertWithStates upserts m and replaces its state mapping rows in one
	// transaction.
	UpsertWithStates(ctx context.Context, m model.ProjectMapping, rows []model.StateMapping) (model.ProjectMapping, error)
	// Get returns nil, nil when no mapping exists.
	Get(ctx context.Context, projectID string, provider model.Provider) (*model.ProjectMapping, error)
	ListByProject(ctx context.Context, projectID string) ([]model.ProjectMapping, error)
}

// StateMappingStore defines the driven port for state mapping rows.
type StateMappingStore interface {
	// ReplaceForMapping atomically deletes every row for mappingID and inserts
	// rows. A failure leaves the previous set untouched.
	ReplaceForMapping(ctx context.Context, provider model.Provider, mappingID string, rows []model.StateMapping) error
	// ReplaceForMappings does the same for several mappings, keyed by
	// project mapping id, in one transaction.
	ReplaceForMappings(ctx context.Context, sets map[string][]model.StateMapping) error
	ListByMapping(ctx context.Context, mappingID string) ([]model.StateMapping, error)
}
