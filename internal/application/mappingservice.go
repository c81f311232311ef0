package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

// SetMappingInput binds a local project to a remote team.
type SetMappingInput struct {
	ProjectID       string
	Provider        model.Provider
	ConnectionID    string
	TeamID          string
	RemoteProjectID string
	SyncMode        model.SyncMode // Defaults to one_way.
}

// MappingService resolves project mappings, their materialized state
// mapping rows, and project column configuration.
type MappingService struct {
	stores  Stores
	clients *TrackerClientProvider
}

// NewMappingService creates a new MappingService.
func NewMappingService(stores Stores, clients *TrackerClientProvider) *MappingService {
	return &MappingService{stores: stores, clients: clients}
}

// SetProjectMapping validates and upserts the mapping for (project, provider)
// and rebuilds its state mapping rows from the team's current workflow states.
// The mapping and its rows are written in one transaction after every remote
// call has succeeded.
func (s *MappingService) SetProjectMapping(ctx context.Context, in SetMappingInput) (model.ProjectMapping, error) {
	if in.ProjectID == "" {
		return model.ProjectMapping{}, fmt.Errorf("%w: project id is required", model.ErrValidation)
	}
	if in.Provider == "" {
		in.Provider = model.ProviderLinear
	}
	if !in.Provider.Valid() {
		return model.ProjectMapping{}, fmt.Errorf("%w: unsupported provider %q", model.ErrValidation, in.Provider)
	}
	if in.SyncMode == "" {
		in.SyncMode = model.SyncModeOneWay
	}
	if !in.SyncMode.Valid() {
		return model.ProjectMapping{}, fmt.Errorf("%w: unknown sync mode %q", model.ErrValidation, in.SyncMode)
	}
	if in.TeamID == "" {
		return model.ProjectMapping{}, fmt.Errorf("%w: team id is required", model.ErrValidation)
	}

	client, conn, err := s.clients.ForConnection(ctx, in.ConnectionID)
	if err != nil {
		return model.ProjectMapping{}, err
	}
	if conn.Provider != in.Provider {
		return model.ProjectMapping{}, fmt.Errorf("%w: connection %s is not a %s connection", model.ErrValidation, conn.ID, in.Provider)
	}

	teams, err := client.ListTeams(ctx)
	if err != nil {
		return model.ProjectMapping{}, fmt.Errorf("list remote teams: %w", err)
	}
	var team *model.RemoteTeam
	for i := range teams {
		if teams[i].ID == in.TeamID {
			team = &teams[i]
			break
		}
	}
	if team == nil {
		return model.ProjectMapping{}, fmt.Errorf("%w: team %s not found in workspace", model.ErrValidation, in.TeamID)
	}

	states, err := client.ListWorkflowStates(ctx, team.ID)
	if err != nil {
		return model.ProjectMapping{}, fmt.Errorf("list workflow states: %w", err)
	}
	columns, err := loadColumns(ctx, s.stores.Settings, in.ProjectID)
	if err != nil {
		return model.ProjectMapping{}, fmt.Errorf("load columns: %w", err)
	}

	mapping, err := s.stores.ProjectMappings.UpsertWithStates(ctx, model.ProjectMapping{
		ProjectID:       in.ProjectID,
		Provider:        in.Provider,
		ConnectionID:    conn.ID,
		TeamID:          team.ID,
		TeamKey:         team.Key,
		RemoteProjectID: in.RemoteProjectID,
		SyncMode:        in.SyncMode,
	}, stateMappingRows(in.Provider, columns, states))
	if err != nil {
		return model.ProjectMapping{}, fmt.Errorf("save project mapping: %w", err)
	}

	slog.Info("project mapping saved",
		"project_id", mapping.ProjectID,
		"team", mapping.TeamKey,
		"sync_mode", mapping.SyncMode,
	)

	return mapping, nil
}

// GetProjectMapping returns the mapping for (project, provider).
func (s *MappingService) GetProjectMapping(ctx context.Context, projectID string, provider model.Provider) (model.ProjectMapping, error) {
	mapping, err := s.stores.ProjectMappings.Get(ctx, projectID, provider)
	if err != nil {
		return model.ProjectMapping{}, fmt.Errorf("get project mapping: %w", err)
	}
	if mapping == nil {
		return model.ProjectMapping{}, fmt.Errorf("%w: no %s mapping for project %s", model.ErrNotFound, provider, projectID)
	}
	return *mapping, nil
}

// stateMappingRows computes the materialized rows for one mapping from the
// project's columns and the team's workflow states.
func stateMappingRows(provider model.Provider, columns workflow.ColumnConfig, states []model.WorkflowState) []model.StateMapping {
	computed := workflow.BuildStateRows(columns, states)
	rows := make([]model.StateMapping, 0, len(computed))
	for _, r := range computed {
		rows = append(rows, model.StateMapping{
			Provider:        provider,
			LocalStatus:     r.LocalStatus,
			RemoteStateID:   r.RemoteStateID,
			RemoteStateType: r.RemoteStateType,
		})
	}
	return rows
}

// GetProjectColumns returns the project's column configuration, or the
// default board when none is stored or the stored payload is invalid.
func (s *MappingService) GetProjectColumns(ctx context.Context, projectID string) (workflow.ColumnConfig, error) {
	if projectID == "" {
		return workflow.ColumnConfig{}, fmt.Errorf("%w: project id is required", model.ErrValidation)
	}
	return loadColumns(ctx, s.stores.Settings, projectID)
}

// SetProjectColumns validates a column configuration and rebuilds the state
// mapping rows of every mapping of the project against it. Remote states are
// fetched for all mappings before anything is written, so a remote failure
// leaves both the columns and the rows untouched.
func (s *MappingService) SetProjectColumns(ctx context.Context, projectID string, cfg workflow.ColumnConfig) (workflow.ColumnConfig, error) {
	if projectID == "" {
		return workflow.ColumnConfig{}, fmt.Errorf("%w: project id is required", model.ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return workflow.ColumnConfig{}, err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return workflow.ColumnConfig{}, fmt.Errorf("encode columns: %w", err)
	}

	mappings, err := s.stores.ProjectMappings.ListByProject(ctx, projectID)
	if err != nil {
		return workflow.ColumnConfig{}, fmt.Errorf("list project mappings: %w", err)
	}

	sets := make(map[string][]model.StateMapping, len(mappings))
	for _, m := range mappings {
		client, _, err := s.clients.ForConnection(ctx, m.ConnectionID)
		if err != nil {
			return workflow.ColumnConfig{}, err
		}
		states, err := client.ListWorkflowStates(ctx, m.TeamID)
		if err != nil {
			return workflow.ColumnConfig{}, fmt.Errorf("list workflow states for team %s: %w", m.TeamKey, err)
		}
		sets[m.ID] = stateMappingRows(m.Provider, cfg, states)
	}

	if err := s.stores.Settings.Set(ctx, columnsKey(projectID), string(raw)); err != nil {
		return workflow.ColumnConfig{}, fmt.Errorf("save columns: %w", err)
	}
	if len(sets) > 0 {
		if err := s.stores.StateMappings.ReplaceForMappings(ctx, sets); err != nil {
			return workflow.ColumnConfig{}, fmt.Errorf("refresh state mappings: %w", err)
		}
	}

	slog.Debug("project columns saved", "project_id", projectID, "columns", len(cfg.Columns), "mappings", len(sets))
	return cfg, nil
}
