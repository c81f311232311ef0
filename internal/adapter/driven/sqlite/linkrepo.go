package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LinkStore = (*LinkRepo)(nil)

// ErrLinkAlreadyExists indicates the task or remote item is already linked.
var ErrLinkAlreadyExists = errors.New("external link already exists")

const linkColumns = `l.id, l.provider, l.connection_id, l.remote_type, l.remote_id, l.remote_key,
	l.remote_url, l.task_id, l.sync_state, l.last_sync_at, l.last_error, l.created_at, l.updated_at`

// LinkRepo is the SQLite implementation of the LinkStore port interface.
type LinkRepo struct {
	db *DB
}

// NewLinkRepo creates a new LinkRepo backed by the given DB.
func NewLinkRepo(db *DB) *LinkRepo {
	return &LinkRepo{db: db}
}

// Create inserts a new external link. Returns ErrLinkAlreadyExists if the
// task or the remote item is already linked for the provider.
func (r *LinkRepo) Create(ctx context.Context, link model.ExternalLink) error {
	return insertLink(ctx, r.db.Writer, link)
}

// CreateWithTask inserts a new task and its link in one transaction, so a
// rejected link leaves no unlinked task behind.
func (r *LinkRepo) CreateWithTask(ctx context.Context, task model.Task, link model.ExternalLink) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
		link.TaskID = task.ID
		return insertLink(ctx, tx, link)
	})
}

func insertLink(ctx context.Context, ex execer, link model.ExternalLink) error {
	const query = `
		INSERT INTO external_links (
			id, provider, connection_id, remote_type, remote_id, remote_key, remote_url,
			task_id, sync_state, last_sync_at, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.SyncState == "" {
		link.SyncState = model.SyncStateActive
	}
	if link.RemoteType == "" {
		link.RemoteType = "issue"
	}
	now := formatTime(time.Now())

	_, err := ex.ExecContext(ctx, query,
		link.ID, string(link.Provider), link.ConnectionID, link.RemoteType, link.RemoteID, link.RemoteKey,
		link.RemoteURL, link.TaskID, string(link.SyncState), nullTime(link.LastSyncAt), nullString(link.LastError),
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create link for task %s: %w", link.TaskID, ErrLinkAlreadyExists)
		}
		return fmt.Errorf("create link for task %s: %w", link.TaskID, err)
	}
	return nil
}

// GetByRemoteID retrieves the link for a remote item. Returns nil, nil if none exists.
func (r *LinkRepo) GetByRemoteID(ctx context.Context, provider model.Provider, remoteID string) (*model.ExternalLink, error) {
	query := `SELECT ` + linkColumns + ` FROM external_links l
		WHERE l.provider = ? AND l.remote_id = ?
		ORDER BY l.created_at
		LIMIT 1`

	link, err := scanLink(r.db.Reader.QueryRowContext(ctx, query, string(provider), remoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link for remote %s: %w", remoteID, err)
	}
	return link, nil
}

// GetByTask retrieves a task's link for a provider. Returns nil, nil if none exists.
func (r *LinkRepo) GetByTask(ctx context.Context, taskID string, provider model.Provider) (*model.ExternalLink, error) {
	query := `SELECT ` + linkColumns + ` FROM external_links l WHERE l.task_id = ? AND l.provider = ?`

	link, err := scanLink(r.db.Reader.QueryRowContext(ctx, query, taskID, string(provider)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link for task %s: %w", taskID, err)
	}
	return link, nil
}

// LinkedTaskIDs returns remote id -> task id for the linked subset of remoteIDs.
func (r *LinkRepo) LinkedTaskIDs(ctx context.Context, provider model.Provider, remoteIDs []string) (map[string]string, error) {
	result := make(map[string]string, len(remoteIDs))
	if len(remoteIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(remoteIDs)), ",")
	query := `SELECT remote_id, task_id FROM external_links WHERE provider = ? AND remote_id IN (` + placeholders + `)`

	args := make([]any, 0, len(remoteIDs)+1)
	args = append(args, string(provider))
	for _, id := range remoteIDs {
		args = append(args, id)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list linked task ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var remoteID, taskID string
		if err := rows.Scan(&remoteID, &taskID); err != nil {
			return nil, fmt.Errorf("scan linked task id: %w", err)
		}
		result[remoteID] = taskID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate linked task ids: %w", err)
	}

	return result, nil
}

// ListSyncable selects the links a sync pass should visit: provider matches,
// connection enabled, task present, narrowed by the non-empty filter fields.
func (r *LinkRepo) ListSyncable(ctx context.Context, provider model.Provider, filter model.SyncFilter) ([]model.SyncCandidate, error) {
	query := `
		SELECT ` + linkColumns + `, t.project_id, c.credential_ref
		FROM external_links l
		JOIN connections c ON c.id = l.connection_id
		JOIN tasks t ON t.id = l.task_id
		WHERE l.provider = ?
		  AND c.enabled = 1
		  AND (? = '' OR l.connection_id = ?)
		  AND (? = '' OR l.task_id = ?)
		  AND (? = '' OR t.project_id = ?)
		ORDER BY l.created_at, l.id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query,
		string(provider),
		filter.ConnectionID, filter.ConnectionID,
		filter.TaskID, filter.TaskID,
		filter.ProjectID, filter.ProjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list syncable links: %w", err)
	}
	defer rows.Close()

	var candidates []model.SyncCandidate
	for rows.Next() {
		var c model.SyncCandidate
		link, err := scanLinkWith(rows, &c.ProjectID, &c.CredentialRef)
		if err != nil {
			return nil, fmt.Errorf("scan syncable link: %w", err)
		}
		c.Link = *link
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate syncable links: %w", err)
	}

	return candidates, nil
}

// MarkActive records a successful sync for a link and clears its last error.
func (r *LinkRepo) MarkActive(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE external_links
		SET sync_state = 'active', last_error = NULL, last_sync_at = ?, updated_at = ?
		WHERE id = ?
	`

	stamp := formatTime(at)
	if _, err := r.db.Writer.ExecContext(ctx, query, stamp, stamp, id); err != nil {
		return fmt.Errorf("mark link %s active: %w", id, err)
	}
	return nil
}

// MarkError records a failed sync for a link.
func (r *LinkRepo) MarkError(ctx context.Context, id string, message string) error {
	const query = `
		UPDATE external_links
		SET sync_state = 'error', last_error = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, message, formatTime(time.Now()), id); err != nil {
		return fmt.Errorf("mark link %s error: %w", id, err)
	}
	return nil
}

// DeleteByTask removes a task's link for a provider.
func (r *LinkRepo) DeleteByTask(ctx context.Context, taskID string, provider model.Provider) (bool, error) {
	const query = `DELETE FROM external_links WHERE task_id = ? AND provider = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, taskID, string(provider))
	if err != nil {
		return false, fmt.Errorf("delete link for task %s: %w", taskID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n > 0, nil
}

func scanLink(s scanner) (*model.ExternalLink, error) {
	return scanLinkWith(s)
}

// scanLinkWith scans the link columns followed by any extra destinations.
func scanLinkWith(s scanner, extra ...any) (*model.ExternalLink, error) {
	var link model.ExternalLink
	var provider, syncState string
	var lastSyncAt, lastError sql.NullString
	var createdAt, updatedAt string

	dest := []any{
		&link.ID, &provider, &link.ConnectionID, &link.RemoteType, &link.RemoteID, &link.RemoteKey,
		&link.RemoteURL, &link.TaskID, &syncState, &lastSyncAt, &lastError, &createdAt, &updatedAt,
	}
	dest = append(dest, extra...)

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	link.Provider = model.Provider(provider)
	link.SyncState = model.SyncState(syncState)
	link.LastError = lastError.String

	if link.LastSyncAt, err = parseNullTime(lastSyncAt); err != nil {
		return nil, fmt.Errorf("parse last_sync_at: %w", err)
	}
	if link.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if link.UpdatedAt, err = model.ParseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &link, nil
}
