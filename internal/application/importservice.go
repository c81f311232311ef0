package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

// ListIssuesInput selects a page of remote issues for a connection.
type ListIssuesInput struct {
	ConnectionID string
	TeamID       string
	ProjectID    string // Remote project id; wins over TeamID.
	First        int
	After        string
}

// ImportInput selects remote issues to import into a local project.
type ImportInput struct {
	ConnectionID    string
	ProjectID       string // Local project id.
	TeamID          string // Defaults to the project's mapping team.
	RemoteProjectID string // Defaults to the project's mapping remote project.
	First           int
	After           string
	IssueIDs        []string // When non-empty, only these remote issues are imported.
}

// ImportResult summarizes an import.
type ImportResult struct {
	Imported   int    // New tasks created.
	Linked     int    // Already-linked tasks refreshed in place.
	NextCursor string // Remote pagination cursor, passed through unchanged.
}

// ImportService browses remote issues and imports them as local tasks.
type ImportService struct {
	stores  Stores
	clients *TrackerClientProvider
	markup  driven.MarkupConverter
}

// NewImportService creates a new ImportService.
func NewImportService(stores Stores, clients *TrackerClientProvider, markup driven.MarkupConverter) *ImportService {
	return &ImportService{stores: stores, clients: clients, markup: markup}
}

// ListRemoteIssues returns a page of remote issues, each annotated with the
// id of the local task it is linked to, if any.
func (s *ImportService) ListRemoteIssues(ctx context.Context, in ListIssuesInput) (model.IssuePage, error) {
	if in.TeamID == "" && in.ProjectID == "" {
		return model.IssuePage{}, fmt.Errorf("%w: team id or project id is required", model.ErrValidation)
	}

	client, conn, err := s.clients.ForConnection(ctx, in.ConnectionID)
	if err != nil {
		return model.IssuePage{}, err
	}

	page, err := client.ListIssues(ctx, model.IssueQuery{
		TeamID:    in.TeamID,
		ProjectID: in.ProjectID,
		First:     in.First,
		After:     in.After,
	})
	if err != nil {
		return model.IssuePage{}, fmt.Errorf("list remote issues: %w", err)
	}

	ids := make([]string, 0, len(page.Issues))
	for _, issue := range page.Issues {
		ids = append(ids, issue.ID)
	}
	linked, err := s.stores.Links.LinkedTaskIDs(ctx, conn.Provider, ids)
	if err != nil {
		return model.IssuePage{}, fmt.Errorf("annotate linked issues: %w", err)
	}
	for i := range page.Issues {
		page.Issues[i].LinkedTaskID = linked[page.Issues[i].ID]
	}

	return page, nil
}

// ImportIssues imports a page of remote issues into a local project. Issues
// already linked refresh their task in place; others create a task and link.
func (s *ImportService) ImportIssues(ctx context.Context, in ImportInput) (ImportResult, error) {
	if in.ProjectID == "" {
		return ImportResult{}, fmt.Errorf("%w: project id is required", model.ErrValidation)
	}

	client, conn, err := s.clients.ForConnection(ctx, in.ConnectionID)
	if err != nil {
		return ImportResult{}, err
	}

	mapping, err := s.stores.ProjectMappings.Get(ctx, in.ProjectID, conn.Provider)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load project mapping: %w", err)
	}

	teamID, remoteProjectID := in.TeamID, in.RemoteProjectID
	if mapping != nil {
		if teamID == "" {
			teamID = mapping.TeamID
		}
		if remoteProjectID == "" && teamID == mapping.TeamID {
			remoteProjectID = mapping.RemoteProjectID
		}
	}
	if teamID == "" && remoteProjectID == "" {
		return ImportResult{}, fmt.Errorf("%w: no remote team for project %s", model.ErrValidation, in.ProjectID)
	}

	page, err := client.ListIssues(ctx, model.IssueQuery{
		TeamID:    teamID,
		ProjectID: remoteProjectID,
		First:     in.First,
		After:     in.After,
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("list remote issues: %w", err)
	}

	columns, err := loadColumns(ctx, s.stores.Settings, in.ProjectID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load columns: %w", err)
	}
	var stateRows []model.StateMapping
	if mapping != nil {
		if stateRows, err = s.stores.StateMappings.ListByMapping(ctx, mapping.ID); err != nil {
			return ImportResult{}, fmt.Errorf("load state mappings: %w", err)
		}
	}

	wanted := make(map[string]struct{}, len(in.IssueIDs))
	for _, id := range in.IssueIDs {
		wanted[id] = struct{}{}
	}

	result := ImportResult{NextCursor: page.NextCursor}
	for _, issue := range page.Issues {
		if len(wanted) > 0 {
			if _, ok := wanted[issue.ID]; !ok {
				continue
			}
		}

		created, err := s.importIssue(ctx, conn, in.ProjectID, issue, columns, stateRows)
		if err != nil {
			return result, fmt.Errorf("import issue %s: %w", issue.Identifier, err)
		}
		if created {
			result.Imported++
		} else {
			result.Linked++
		}
	}

	slog.Info("issues imported",
		"project_id", in.ProjectID,
		"imported", result.Imported,
		"linked", result.Linked,
	)

	return result, nil
}

// importIssue writes one issue and reports whether a new task was created.
func (s *ImportService) importIssue(
	ctx context.Context,
	conn *model.Connection,
	projectID string,
	issue model.Issue,
	columns workflow.ColumnConfig,
	stateRows []model.StateMapping,
) (bool, error) {
	link, err := s.stores.Links.GetByRemoteID(ctx, conn.Provider, issue.ID)
	if err != nil {
		return false, err
	}

	if link != nil {
		task, err := s.stores.Tasks.Get(ctx, link.TaskID)
		if err != nil {
			return false, err
		}
		if task == nil {
			return false, fmt.Errorf("%w: linked task %s", model.ErrNotFound, link.TaskID)
		}
		applyRemote(task, issue, columns, stateRows, s.markup)
		return false, s.stores.Tasks.Update(ctx, *task)
	}

	now := time.Now().UTC()
	task := model.Task{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		CreatedAt: now,
	}
	applyRemote(&task, issue, columns, stateRows, s.markup)

	if err := s.stores.Links.CreateWithTask(ctx, task, model.ExternalLink{
		Provider:     conn.Provider,
		ConnectionID: conn.ID,
		RemoteType:   "issue",
		RemoteID:     issue.ID,
		RemoteKey:    issue.Identifier,
		RemoteURL:    issue.URL,
		SyncState:    model.SyncStateActive,
		LastSyncAt:   &now,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// applyRemote overwrites the synced task fields from a remote issue.
func applyRemote(
	task *model.Task,
	issue model.Issue,
	columns workflow.ColumnConfig,
	stateRows []model.StateMapping,
	markup driven.MarkupConverter,
) {
	task.Title = issue.Title
	task.Description = markup.ToLocal(issue.Description)
	task.Status = workflow.LocalStatusFor(issue.State, columns, stateRows)
	task.Priority = workflow.PriorityToLocal(issue.Priority)
	task.Assignee = ""
	if issue.Assignee != nil {
		task.Assignee = issue.Assignee.Name
	}
	task.UpdatedAt = issue.UpdatedAt
}
