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
var _ driven.ConnectionStore = (*ConnectionRepo)(nil)

const connectionColumns = `id, provider, workspace_id, workspace_name, account_label, credential_ref,
	enabled, created_at, updated_at, last_synced_at`

// ConnectionRepo is the SQLite implementation of the ConnectionStore port interface.
type ConnectionRepo struct {
	db *DB
}

// NewConnectionRepo creates a new ConnectionRepo backed by the given DB.
func NewConnectionRepo(db *DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// Upsert inserts a connection or updates the existing row for the same
// (provider, workspace_id). The stored row is returned.
func (r *ConnectionRepo) Upsert(ctx context.Context, conn model.Connection) (model.Connection, error) {
	const query = `
		INSERT INTO connections (
			id, provider, workspace_id, workspace_name, account_label, credential_ref,
			enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, workspace_id) DO UPDATE SET
			workspace_name = excluded.workspace_name,
			account_label = excluded.account_label,
			credential_ref = excluded.credential_ref,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
		RETURNING ` + connectionColumns

	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	stored, err := scanConnection(r.db.Writer.QueryRowContext(ctx, query,
		conn.ID, string(conn.Provider), conn.WorkspaceID, conn.WorkspaceName, conn.AccountLabel,
		conn.CredentialRef, boolToInt(conn.Enabled), formatTime(timestampOrNow(conn.CreatedAt)), formatTime(now),
	))
	if err != nil {
		return model.Connection{}, fmt.Errorf("upsert connection %s/%s: %w", conn.Provider, conn.WorkspaceID, err)
	}

	return *stored, nil
}

// GetByID retrieves a connection. Returns nil, nil if it does not exist.
func (r *ConnectionRepo) GetByID(ctx context.Context, id string) (*model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = ?`

	conn, err := scanConnection(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", id, err)
	}
	return conn, nil
}

// GetByWorkspace retrieves the connection for a provider workspace.
// Returns nil, nil if it does not exist.
func (r *ConnectionRepo) GetByWorkspace(ctx context.Context, provider model.Provider, workspaceID string) (*model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE provider = ? AND workspace_id = ?`

	conn, err := scanConnection(r.db.Reader.QueryRowContext(ctx, query, string(provider), workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connection %s/%s: %w", provider, workspaceID, err)
	}
	return conn, nil
}

// List returns connections ordered by creation time. An empty provider
// returns every connection.
func (r *ConnectionRepo) List(ctx context.Context, provider model.Provider) ([]model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections
		WHERE (? = '' OR provider = ?)
		ORDER BY created_at, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(provider), string(provider))
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return conns, nil
}

// Delete removes a connection. Project mappings and external links are
// removed by foreign key cascade.
func (r *ConnectionRepo) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM connections WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete connection %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n > 0, nil
}

// TouchLastSynced stamps last_synced_at for a connection.
func (r *ConnectionRepo) TouchLastSynced(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE connections SET last_synced_at = ? WHERE id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, formatTime(at), id); err != nil {
		return fmt.Errorf("touch connection %s: %w", id, err)
	}
	return nil
}

func scanConnection(s scanner) (*model.Connection, error) {
	var conn model.Connection
	var provider string
	var enabled int
	var createdAt, updatedAt string
	var lastSynced sql.NullString

	err := s.Scan(
		&conn.ID, &provider, &conn.WorkspaceID, &conn.WorkspaceName, &conn.AccountLabel,
		&conn.CredentialRef, &enabled, &createdAt, &updatedAt, &lastSynced,
	)
	if err != nil {
		return nil, err
	}

	conn.Provider = model.Provider(provider)
	conn.Enabled = enabled != 0

	if conn.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if conn.UpdatedAt, err = model.ParseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if conn.LastSyncedAt, err = parseNullTime(lastSynced); err != nil {
		return nil, fmt.Errorf("parse last_synced_at: %w", err)
	}

	return &conn, nil
}
