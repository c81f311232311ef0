package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FieldStateStore = (*FieldStateRepo)(nil)

// FieldStateRepo is the SQLite implementation of the FieldStateStore port interface.
type FieldStateRepo struct {
	db *DB
}

// NewFieldStateRepo creates a new FieldStateRepo backed by the given DB.
func NewFieldStateRepo(db *DB) *FieldStateRepo {
	return &FieldStateRepo{db: db}
}

// Upsert inserts or replaces the snapshot for (external_link_id, field_name).
func (r *FieldStateRepo) Upsert(ctx context.Context, state model.FieldState) error {
	const query = `
		INSERT INTO field_states (
			id, external_link_id, field_name, local_value, remote_value, local_updated_at, remote_updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_link_id, field_name) DO UPDATE SET
			local_value = excluded.local_value,
			remote_value = excluded.remote_value,
			local_updated_at = excluded.local_updated_at,
			remote_updated_at = excluded.remote_updated_at
	`

	if state.ID == "" {
		state.ID = uuid.NewString()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		state.ID, state.ExternalLinkID, state.FieldName, state.LocalValue, state.RemoteValue,
		formatTime(state.LocalUpdatedAt), formatTime(state.RemoteUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert field state %s/%s: %w", state.ExternalLinkID, state.FieldName, err)
	}
	return nil
}

// ListByLink returns the field snapshots for a link ordered by field name.
func (r *FieldStateRepo) ListByLink(ctx context.Context, linkID string) ([]model.FieldState, error) {
	const query = `
		SELECT id, external_link_id, field_name, local_value, remote_value, local_updated_at, remote_updated_at
		FROM field_states
		WHERE external_link_id = ?
		ORDER BY field_name
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("list field states for %s: %w", linkID, err)
	}
	defer rows.Close()

	var states []model.FieldState
	for rows.Next() {
		var fs model.FieldState
		var localAt, remoteAt string
		if err := rows.Scan(
			&fs.ID, &fs.ExternalLinkID, &fs.FieldName, &fs.LocalValue, &fs.RemoteValue, &localAt, &remoteAt,
		); err != nil {
			return nil, fmt.Errorf("scan field state: %w", err)
		}
		if fs.LocalUpdatedAt, err = model.ParseTimestamp(localAt); err != nil {
			return nil, fmt.Errorf("parse local_updated_at: %w", err)
		}
		if fs.RemoteUpdatedAt, err = model.ParseTimestamp(remoteAt); err != nil {
			return nil, fmt.Errorf("parse remote_updated_at: %w", err)
		}
		states = append(states, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field states: %w", err)
	}

	return states, nil
}
