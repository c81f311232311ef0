package driven

import (
	"context"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// TaskStore is the slice of the host's task persistence used by sync.
type TaskStore interface {
	Create(ctx context.Context, task model.Task) error
	// Get returns nil, nil when the task does not exist.
	Get(ctx context.Context, id string) (*model.Task, error)
	// Update overwrites the synced fields and updated_at of an existing task.
	Update(ctx context.Context, task model.Task) error
}
