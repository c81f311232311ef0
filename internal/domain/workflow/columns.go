package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// ErrInvalidColumns is returned (wrapped) when a stored column configuration
// cannot be used. It wraps model.ErrValidation.
var ErrInvalidColumns = fmt.Errorf("%w: invalid column configuration", model.ErrValidation)

// ErrColumnsNotConfigured is the fallback reason when a project has no stored
// column configuration. It wraps ErrInvalidColumns.
var ErrColumnsNotConfigured = fmt.Errorf("%w: not configured", ErrInvalidColumns)

// Column is one local workflow column.
type Column struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category model.Category `json:"category"`
}

// ColumnConfig is a project's ordered column set.
type ColumnConfig struct {
	Columns       []Column `json:"columns"`
	DefaultStatus string   `json:"default_status,omitempty"`
}

// DefaultColumns returns the board used when a project has no valid
// configuration of its own.
func DefaultColumns() ColumnConfig {
	return ColumnConfig{
		Columns: []Column{
			{ID: "backlog", Name: "Backlog", Category: model.CategoryBacklog},
			{ID: "todo", Name: "To Do", Category: model.CategoryUnstarted},
			{ID: "in_progress", Name: "In Progress", Category: model.CategoryStarted},
			{ID: "in_review", Name: "In Review", Category: model.CategoryStarted},
			{ID: "done", Name: "Done", Category: model.CategoryCompleted},
			{ID: "canceled", Name: "Canceled", Category: model.CategoryCanceled},
		},
		DefaultStatus: "backlog",
	}
}

// Validate checks that the configuration is non-empty, column ids are unique
// and non-empty, every category is known, and the default status (if set)
// names a column.
func (c ColumnConfig) Validate() error {
	if len(c.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidColumns)
	}

	seen := make(map[string]struct{}, len(c.Columns))
	for i, col := range c.Columns {
		if col.ID == "" {
			return fmt.Errorf("%w: column %d has empty id", ErrInvalidColumns, i)
		}
		if _, dup := seen[col.ID]; dup {
			return fmt.Errorf("%w: duplicate column id %q", ErrInvalidColumns, col.ID)
		}
		seen[col.ID] = struct{}{}

		if !col.Category.Valid() {
			return fmt.Errorf("%w: column %q has unknown category %q", ErrInvalidColumns, col.ID, col.Category)
		}
	}

	if c.DefaultStatus != "" {
		if _, ok := seen[c.DefaultStatus]; !ok {
			return fmt.Errorf("%w: default status %q is not a column", ErrInvalidColumns, c.DefaultStatus)
		}
	}

	return nil
}

// ParseColumnConfig decodes and validates a stored column configuration.
func ParseColumnConfig(raw []byte) (ColumnConfig, error) {
	var cfg ColumnConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ColumnConfig{}, fmt.Errorf("%w: %v", ErrInvalidColumns, err)
	}
	if err := cfg.Validate(); err != nil {
		return ColumnConfig{}, err
	}
	return cfg, nil
}

// ResolveColumnConfig returns the configuration stored in raw, or the
// default board when raw is empty or invalid. The returned error explains
// why the default was used (ErrColumnsNotConfigured for an empty payload)
// and is nil when raw was used as-is; callers are expected to log it rather
// than fail.
func ResolveColumnConfig(raw string) (ColumnConfig, error) {
	if raw == "" {
		return DefaultColumns(), ErrColumnsNotConfigured
	}

	cfg, err := ParseColumnConfig([]byte(raw))
	if err != nil {
		return DefaultColumns(), err
	}
	return cfg, nil
}

// IsFallback reports whether err came from ResolveColumnConfig falling back
// to the default board.
func IsFallback(err error) bool {
	return errors.Is(err, ErrInvalidColumns)
}

// Column returns the column with the given id.
func (c ColumnConfig) Column(id string) (Column, bool) {
	for _, col := range c.Columns {
		if col.ID == id {
			return col, true
		}
	}
	return Column{}, false
}

// Default returns the configured default status, or the first column.
func (c ColumnConfig) Default() string {
	if c.DefaultStatus != "" {
		return c.DefaultStatus
	}
	if len(c.Columns) > 0 {
		return c.Columns[0].ID
	}
	return ""
}
