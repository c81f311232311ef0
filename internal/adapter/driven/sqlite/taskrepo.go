package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaskStore = (*TaskRepo)(nil)

// TaskRepo is the SQLite implementation of the TaskStore port interface.
type TaskRepo struct {
	db *DB
}

// NewTaskRepo creates a new TaskRepo backed by the given DB.
func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Create inserts a new task.
func (r *TaskRepo) Create(ctx context.Context, task model.Task) error {
	return insertTask(ctx, r.db.Writer, task)
}

func insertTask(ctx context.Context, ex execer, task model.Task) error {
	const query = `
		INSERT INTO tasks (id, project_id, title, description, status, priority, assignee, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := timestampOrNow(task.CreatedAt)
	updatedAt := task.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := ex.ExecContext(ctx, query,
		task.ID, task.ProjectID, task.Title, task.Description, task.Status, task.Priority, task.Assignee,
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("create task %s: %w", task.ID, err)
	}
	return nil
}

// Get retrieves a task. Returns nil, nil if the task does not exist.
func (r *TaskRepo) Get(ctx context.Context, id string) (*model.Task, error) {
	const query = `
		SELECT id, project_id, title, description, status, priority, assignee, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`

	var task model.Task
	var createdAt, updatedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&task.ID, &task.ProjectID, &task.Title, &task.Description, &task.Status,
		&task.Priority, &task.Assignee, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}

	if task.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for task %s: %w", id, err)
	}
	// updated_at may have been written by the host without a zone suffix;
	// ParseTimestamp reads such values as UTC.
	if task.UpdatedAt, err = model.ParseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for task %s: %w", id, err)
	}

	return &task, nil
}

// Update overwrites the synced fields of a task.
func (r *TaskRepo) Update(ctx context.Context, task model.Task) error {
	const query = `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, assignee = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		task.Title, task.Description, task.Status, task.Priority, task.Assignee,
		formatTime(timestampOrNow(task.UpdatedAt)), task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update task %s: %w", task.ID, model.ErrNotFound)
	}
	return nil
}
