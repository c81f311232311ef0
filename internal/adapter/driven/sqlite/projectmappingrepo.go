package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProjectMappingStore = (*ProjectMappingRepo)(nil)

const projectMappingColumns = `id, project_id, provider, connection_id, team_id, team_key,
	remote_project_id, sync_mode, created_at, updated_at`

// ProjectMappingRepo is the SQLite implementation of the ProjectMappingStore port interface.
type ProjectMappingRepo struct {
	db *DB
}

// NewProjectMappingRepo creates a new ProjectMappingRepo backed by the given DB.
func NewProjectMappingRepo(db *DB) *ProjectMappingRepo {
	return &ProjectMappingRepo{db: db}
}

// Upsert inserts or updates the mapping for (project_id, provider). On
// conflict the connection, team, remote project and sync mode are replaced
// and updated_at is stamped.
func (r *ProjectMappingRepo) Upsert(ctx context.Context, m model.ProjectMapping) (model.ProjectMapping, error) {
	return upsertProjectMapping(ctx, r.db.Writer, m)
}

// UpsertWithStates upserts the mapping and replaces its state mapping rows in
// one transaction. Either both land or neither does.
func (r *ProjectMappingRepo) UpsertWithStates(ctx context.Context, m model.ProjectMapping, rows []model.StateMapping) (model.ProjectMapping, error) {
	var stored model.ProjectMapping
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if stored, err = upsertProjectMapping(ctx, tx, m); err != nil {
			return err
		}
		return replaceStateRows(ctx, tx, stored.Provider, stored.ID, rows)
	})
	if err != nil {
		return model.ProjectMapping{}, err
	}
	return stored, nil
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertProjectMapping(ctx context.Context, q rowQuerier, m model.ProjectMapping) (model.ProjectMapping, error) {
	const query = `
		INSERT INTO project_mappings (
			id, project_id, provider, connection_id, team_id, team_key,
			remote_project_id, sync_mode, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, provider) DO UPDATE SET
			connection_id = excluded.connection_id,
			team_id = excluded.team_id,
			team_key = excluded.team_key,
			remote_project_id = excluded.remote_project_id,
			sync_mode = excluded.sync_mode,
			updated_at = excluded.updated_at
		RETURNING ` + projectMappingColumns

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	stored, err := scanProjectMapping(q.QueryRowContext(ctx, query,
		m.ID, m.ProjectID, string(m.Provider), m.ConnectionID, m.TeamID, m.TeamKey,
		nullString(m.RemoteProjectID), string(m.SyncMode), formatTime(timestampOrNow(m.CreatedAt)), formatTime(now),
	))
	if err != nil {
		return model.ProjectMapping{}, fmt.Errorf("upsert project mapping %s/%s: %w", m.ProjectID, m.Provider, err)
	}

	return *stored, nil
}

// Get retrieves the mapping for a project and provider. Returns nil, nil if
// none exists.
func (r *ProjectMappingRepo) Get(ctx context.Context, projectID string, provider model.Provider) (*model.ProjectMapping, error) {
	query := `SELECT ` + projectMappingColumns + ` FROM project_mappings WHERE project_id = ? AND provider = ?`

	m, err := scanProjectMapping(r.db.Reader.QueryRowContext(ctx, query, projectID, string(provider)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project mapping %s/%s: %w", projectID, provider, err)
	}
	return m, nil
}

// ListByProject returns every provider mapping for a project.
func (r *ProjectMappingRepo) ListByProject(ctx context.Context, projectID string) ([]model.ProjectMapping, error) {
	query := `SELECT ` + projectMappingColumns + ` FROM project_mappings WHERE project_id = ? ORDER BY provider`

	rows, err := r.db.Reader.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project mappings for %s: %w", projectID, err)
	}
	defer rows.Close()

	var mappings []model.ProjectMapping
	for rows.Next() {
		m, err := scanProjectMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project mapping: %w", err)
		}
		mappings = append(mappings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project mappings: %w", err)
	}

	return mappings, nil
}

func scanProjectMapping(s scanner) (*model.ProjectMapping, error) {
	var m model.ProjectMapping
	var provider, syncMode string
	var remoteProjectID sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&m.ID, &m.ProjectID, &provider, &m.ConnectionID, &m.TeamID, &m.TeamKey,
		&remoteProjectID, &syncMode, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Provider = model.Provider(provider)
	m.SyncMode = model.SyncMode(syncMode)
	m.RemoteProjectID = remoteProjectID.String

	if m.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if m.UpdatedAt, err = model.ParseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &m, nil
}
