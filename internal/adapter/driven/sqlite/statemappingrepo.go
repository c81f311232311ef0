package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StateMappingStore = (*StateMappingRepo)(nil)

// StateMappingRepo is the SQLite implementation of the StateMappingStore port interface.
type StateMappingRepo struct {
	db *DB
}

// NewStateMappingRepo creates a new StateMappingRepo backed by the given DB.
func NewStateMappingRepo(db *DB) *StateMappingRepo {
	return &StateMappingRepo{db: db}
}

// ReplaceForMapping atomically replaces all state mapping rows for a project
// mapping. It deletes existing rows and inserts the provided rows in a single
// transaction, so a failure partway leaves the previous set in place.
func (r *StateMappingRepo) ReplaceForMapping(ctx context.Context, provider model.Provider, mappingID string, rows []model.StateMapping) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		return replaceStateRows(ctx, tx, provider, mappingID, rows)
	})
}

// ReplaceForMappings replaces the rows of several mappings in one
// transaction. sets is keyed by project mapping id; each row carries its
// provider.
func (r *StateMappingRepo) ReplaceForMappings(ctx context.Context, sets map[string][]model.StateMapping) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		for mappingID, rows := range sets {
			var provider model.Provider
			if len(rows) > 0 {
				provider = rows[0].Provider
			}
			if err := replaceStateRows(ctx, tx, provider, mappingID, rows); err != nil {
				return err
			}
		}
		return nil
	})
}

func replaceStateRows(ctx context.Context, ex execer, provider model.Provider, mappingID string, rows []model.StateMapping) error {
	const deleteQuery = `DELETE FROM state_mappings WHERE project_mapping_id = ?`
	if _, err := ex.ExecContext(ctx, deleteQuery, mappingID); err != nil {
		return fmt.Errorf("delete state mappings for %s: %w", mappingID, err)
	}

	const insertQuery = `
		INSERT INTO state_mappings (
			id, provider, project_mapping_id, local_status, remote_state_id, remote_state_type,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := formatTime(time.Now())
	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := ex.ExecContext(ctx, insertQuery,
			id, string(provider), mappingID, row.LocalStatus, row.RemoteStateID, row.RemoteStateType, now, now,
		); err != nil {
			return fmt.Errorf("insert state mapping %q for %s: %w", row.LocalStatus, mappingID, err)
		}
	}
	return nil
}

// ListByMapping returns the state mapping rows for a project mapping in the
// order they were written, which follows the project's column order.
func (r *StateMappingRepo) ListByMapping(ctx context.Context, mappingID string) ([]model.StateMapping, error) {
	const query = `
		SELECT id, provider, project_mapping_id, local_status, remote_state_id, remote_state_type,
		       created_at, updated_at
		FROM state_mappings
		WHERE project_mapping_id = ?
		ORDER BY rowid
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, mappingID)
	if err != nil {
		return nil, fmt.Errorf("list state mappings for %s: %w", mappingID, err)
	}
	defer rows.Close()

	var mappings []model.StateMapping
	for rows.Next() {
		var m model.StateMapping
		var provider, createdAt, updatedAt string
		if err := rows.Scan(
			&m.ID, &provider, &m.ProjectMappingID, &m.LocalStatus, &m.RemoteStateID, &m.RemoteStateType,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan state mapping: %w", err)
		}
		m.Provider = model.Provider(provider)
		if m.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if m.UpdatedAt, err = model.ParseTimestamp(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state mappings: %w", err)
	}

	return mappings, nil
}
