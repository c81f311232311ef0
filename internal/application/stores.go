// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

// Stores groups the persistence ports shared by the application services.
type Stores struct {
	Connections     driven.ConnectionStore
	ProjectMappings driven.ProjectMappingStore
	StateMappings   driven.StateMappingStore
	Tasks           driven.TaskStore
	Links           driven.LinkStore
	FieldStates     driven.FieldStateStore
	Settings        driven.SettingsStore
}

func columnsKey(projectID string) string {
	return "project:" + projectID + ":columns"
}

// loadColumns returns the project's column configuration, falling back to
// the default board when none is stored or the stored payload is invalid.
// Only store failures are returned as errors.
func loadColumns(ctx context.Context, settings driven.SettingsStore, projectID string) (workflow.ColumnConfig, error) {
	raw, _, err := settings.Get(ctx, columnsKey(projectID))
	if err != nil {
		return workflow.ColumnConfig{}, err
	}

	cfg, err := workflow.ResolveColumnConfig(raw)
	switch {
	case errors.Is(err, workflow.ErrColumnsNotConfigured):
		slog.Debug("no column configuration, using defaults", "project_id", projectID)
	case err != nil:
		slog.Warn("invalid column configuration, using defaults", "project_id", projectID, "error", err)
	}
	return cfg, nil
}
