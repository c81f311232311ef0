package model

import "time"

// Task is a local task record. It is owned by the host application; the sync
// engine reads and overwrites the fields below.
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string // Local markup (sanitized HTML).
	Status      string // Column id from the project's column configuration.
	Priority    int    // 1 (highest) .. 5 (lowest).
	Assignee    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
