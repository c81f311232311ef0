package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// LinkStore defines the driven port for external link bookkeeping.
type LinkStore interface {
	Create(ctx context.Context, link model.ExternalLink) error
	// CreateWithTask inserts task and its link in one transaction.
	CreateWithTask(ctx context.Context, task model.Task, link model.ExternalLink) error
	// GetByRemoteID returns nil, nil when no link exists.
	GetByRemoteID(ctx context.Context, provider model.Provider, remoteID string) (*model.ExternalLink, error)
	// GetByTask returns nil, nil when the task has no link for provider.
	GetByTask(ctx context.Context, taskID string, provider model.Provider) (*model.ExternalLink, error)
	// LinkedTaskIDs maps each linked remote id in remoteIDs to its task id.
	LinkedTaskIDs(ctx context.Context, provider model.Provider, remoteIDs []string) (map[string]string, error)
	// ListSyncable selects links of provider whose connection is enabled and
	// whose task exists, narrowed by filter.
	ListSyncable(ctx context.Context, provider model.Provider, filter model.SyncFilter) ([]model.SyncCandidate, error)
	MarkActive(ctx context.Context, id string, at time.Time) error
	MarkError(ctx context.Context, id string, message string) error
	// DeleteByTask removes the task's link for provider and reports whether
	// one existed.
	DeleteByTask(ctx context.Context, taskID string, provider model.Provider) (bool, error)
}

// FieldStateStore records write-only push telemetry.
type FieldStateStore interface {
	Upsert(ctx context.Context, state model.FieldState) error
	ListByLink(ctx context.Context, linkID string) ([]model.FieldState, error)
}
