package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// ConnectionStore defines the driven port for connection persistence.
type ConnectionStore interface {
	// Upsert inserts a connection or, when (provider, workspace_id) already
	// exists, updates its label, workspace name, credential ref and enabled
	// flag. The stored row is returned; its ID is the existing one on conflict.
	Upsert(ctx context.Context, conn model.Connection) (model.Connection, error)
	// GetByID returns nil, nil when the connection does not exist.
	GetByID(ctx context.Context, id string) (*model.Connection, error)
	// GetByWorkspace returns nil, nil when no connection exists for the pair.
	GetByWorkspace(ctx context.Context, provider model.Provider, workspaceID string) (*model.Connection, error)
	// List returns connections ordered by creation; an empty provider lists all.
	List(ctx context.Context, provider model.Provider) ([]model.Connection, error)
	// Delete removes the connection (links and mappings cascade) and reports
	// whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
	TouchLastSynced(ctx context.Context, id string, at time.Time) error
}
