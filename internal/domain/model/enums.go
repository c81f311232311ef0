package model

// Provider identifies a remote issue tracker.
type Provider string

// ProviderLinear is the only provider with a concrete mapping.
const ProviderLinear Provider = "linear"

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderLinear
}

// SyncMode controls the direction of synchronization for a project mapping.
type SyncMode string

const (
	SyncModeOneWay SyncMode = "one_way" // Pull only.
	SyncModeTwoWay SyncMode = "two_way" // Pull and push.
)

// Valid reports whether m is a known sync mode.
func (m SyncMode) Valid() bool {
	return m == SyncModeOneWay || m == SyncModeTwoWay
}

// SyncState is the per-link outcome of the most recent sync cycle.
type SyncState string

const (
	SyncStateActive SyncState = "active"
	SyncStateError  SyncState = "error"
)

// Category is the coarse workflow bucket shared by local columns and remote
// state types.
type Category string

const (
	CategoryTriage    Category = "triage"
	CategoryBacklog   Category = "backlog"
	CategoryUnstarted Category = "unstarted"
	CategoryStarted   Category = "started"
	CategoryCompleted Category = "completed"
	CategoryCanceled  Category = "canceled"
)

// Valid reports whether c is one of the six known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTriage, CategoryBacklog, CategoryUnstarted,
		CategoryStarted, CategoryCompleted, CategoryCanceled:
		return true
	default:
		return false
	}
}

// Synced field names recorded in FieldState rows.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPriority    = "priority"
	FieldStatus      = "status"
)
