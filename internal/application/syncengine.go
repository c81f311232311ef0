package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

// Per-link failure messages recorded on the link.
const (
	msgRemoteNotFound     = "Remote issue not found"
	msgRemoteUpdateFailed = "Remote issue update failed"
)

// SyncRunner runs one reconciliation pass.
type SyncRunner interface {
	SyncNow(ctx context.Context, filter model.SyncFilter) (model.SyncResult, error)
}

// Compile-time interface satisfaction check.
var _ SyncRunner = (*SyncEngine)(nil)

// SyncEngine reconciles linked tasks with their remote issues using
// last-write-wins on updated timestamps. Links are processed one at a time
// and a failing link never aborts the pass.
type SyncEngine struct {
	stores  Stores
	clients *TrackerClientProvider
	markup  driven.MarkupConverter
	now     func() time.Time

	// inFlight serializes invocations so a manual run and the poller never
	// process the same link concurrently.
	inFlight chan struct{}
}

// NewSyncEngine creates a new SyncEngine.
func NewSyncEngine(stores Stores, clients *TrackerClientProvider, markup driven.MarkupConverter) *SyncEngine {
	return &SyncEngine{
		stores:   stores,
		clients:  clients,
		markup:   markup,
		now:      func() time.Time { return time.Now().UTC() },
		inFlight: make(chan struct{}, 1),
	}
}

// projectContext caches per-project mapping data for one pass.
type projectContext struct {
	mapping   *model.ProjectMapping
	columns   workflow.ColumnConfig
	stateRows []model.StateMapping
}

// linkOutcome is what happened to one link.
type linkOutcome int

const (
	outcomeNoop linkOutcome = iota
	outcomePulled
	outcomePushed
	outcomeSkipped
	outcomeMissing
)

// SyncNow reconciles every link in scope. It waits for any in-flight
// invocation to finish first. The returned error is non-nil only when the
// scope itself cannot be selected; per-link failures are reported in
// SyncResult.Errors and on the link.
func (e *SyncEngine) SyncNow(ctx context.Context, filter model.SyncFilter) (model.SyncResult, error) {
	select {
	case e.inFlight <- struct{}{}:
	case <-ctx.Done():
		return model.SyncResult{}, ctx.Err()
	}
	defer func() { <-e.inFlight }()

	start := time.Now()
	result := model.SyncResult{Errors: []string{}}

	candidates, err := e.stores.Links.ListSyncable(ctx, model.ProviderLinear, filter)
	if err != nil {
		return result, fmt.Errorf("select links: %w", err)
	}

	projects := make(map[string]*projectContext)

	for _, cand := range candidates {
		if ctx.Err() != nil {
			slog.Info("sync pass interrupted", "remaining", len(candidates)-result.Scanned)
			break
		}
		result.Scanned++

		// A started link runs to completion even if ctx is cancelled mid-way.
		linkCtx := context.WithoutCancel(ctx)

		outcome, err := e.syncLink(linkCtx, cand, projects)
		switch {
		case err != nil:
			msg := err.Error()
			slog.Warn("link sync failed", "link_id", cand.Link.ID, "task_id", cand.Link.TaskID, "error", msg)
			if markErr := e.stores.Links.MarkError(linkCtx, cand.Link.ID, msg); markErr != nil {
				slog.Error("failed to record link error", "link_id", cand.Link.ID, "error", markErr)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", linkLabel(cand.Link), msg))
			continue
		case outcome == outcomeMissing:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", linkLabel(cand.Link), msgRemoteNotFound))
			continue
		case outcome == outcomeSkipped:
			continue
		case outcome == outcomePulled:
			result.Pulled++
			result.ConflictsResolved++
		case outcome == outcomePushed:
			result.Pushed++
		}

		at := e.now()
		if err := e.stores.Links.MarkActive(linkCtx, cand.Link.ID, at); err != nil {
			slog.Error("failed to mark link active", "link_id", cand.Link.ID, "error", err)
		}
		if err := e.stores.Connections.TouchLastSynced(linkCtx, cand.Link.ConnectionID, at); err != nil {
			slog.Error("failed to stamp connection", "connection_id", cand.Link.ConnectionID, "error", err)
		}
	}

	result.At = e.now()

	slog.Info("sync pass complete",
		"scanned", result.Scanned,
		"pulled", result.Pulled,
		"pushed", result.Pushed,
		"errors", len(result.Errors),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return result, nil
}

// syncLink runs the per-link algorithm for one candidate.
func (e *SyncEngine) syncLink(ctx context.Context, cand model.SyncCandidate, projects map[string]*projectContext) (linkOutcome, error) {
	link := cand.Link

	client, err := e.clients.ForCredential(ctx, cand.CredentialRef)
	if err != nil {
		return outcomeNoop, err
	}

	issue, err := client.GetIssue(ctx, link.RemoteID)
	if err != nil {
		return outcomeNoop, err
	}
	if issue == nil {
		if err := e.stores.Links.MarkError(ctx, link.ID, msgRemoteNotFound); err != nil {
			return outcomeNoop, err
		}
		return outcomeMissing, nil
	}

	task, err := e.stores.Tasks.Get(ctx, link.TaskID)
	if err != nil {
		return outcomeNoop, err
	}
	if task == nil {
		return outcomeSkipped, nil
	}

	pc, err := e.projectContext(ctx, cand.ProjectID, link.Provider, projects)
	if err != nil {
		return outcomeNoop, err
	}

	localMs := task.UpdatedAt.UnixMilli()
	remoteMs := issue.UpdatedAt.UnixMilli()

	switch {
	case remoteMs > localMs:
		applyRemote(task, *issue, pc.columns, pc.stateRows, e.markup)
		if err := e.stores.Tasks.Update(ctx, *task); err != nil {
			return outcomeNoop, err
		}
		return outcomePulled, nil
	case localMs > remoteMs && pc.mapping != nil && pc.mapping.SyncMode == model.SyncModeTwoWay:
		if err := e.push(ctx, client, link, task, pc); err != nil {
			return outcomeNoop, err
		}
		return outcomePushed, nil
	default:
		return outcomeNoop, nil
	}
}

// push sends the task's fields to the remote issue, records the FieldState
// snapshots, and aligns the task's updated_at with the remote so an
// unchanged follow-up pass is a no-op.
func (e *SyncEngine) push(
	ctx context.Context,
	client driven.TrackerClient,
	link model.ExternalLink,
	task *model.Task,
	pc *projectContext,
) error {
	description, err := e.markup.ToRemote(task.Description)
	if err != nil {
		return err
	}
	priority := workflow.PriorityToRemote(task.Priority)

	update := model.IssueUpdate{
		Title:       &task.Title,
		Description: &description,
		Priority:    &priority,
	}
	if stateID, ok := workflow.RemoteStateFor(task.Status, pc.columns, pc.stateRows); ok {
		update.StateID = &stateID
	}

	updated, err := client.UpdateIssue(ctx, link.RemoteID, update)
	if err != nil {
		return err
	}
	if updated == nil {
		return errors.New(msgRemoteUpdateFailed)
	}

	localAt := task.UpdatedAt
	snapshots := []struct {
		field  string
		local  any
		remote any
	}{
		{model.FieldTitle, task.Title, updated.Title},
		{model.FieldDescription, task.Description, updated.Description},
		{model.FieldPriority, task.Priority, updated.Priority},
		{model.FieldStatus, task.Status, updated.State.ID},
	}
	for _, snap := range snapshots {
		localJSON, err := json.Marshal(snap.local)
		if err != nil {
			return fmt.Errorf("encode %s: %w", snap.field, err)
		}
		remoteJSON, err := json.Marshal(snap.remote)
		if err != nil {
			return fmt.Errorf("encode %s: %w", snap.field, err)
		}
		if err := e.stores.FieldStates.Upsert(ctx, model.FieldState{
			ExternalLinkID:  link.ID,
			FieldName:       snap.field,
			LocalValue:      string(localJSON),
			RemoteValue:     string(remoteJSON),
			LocalUpdatedAt:  localAt,
			RemoteUpdatedAt: updated.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("record %s field state: %w", snap.field, err)
		}
	}

	if !updated.UpdatedAt.IsZero() {
		task.UpdatedAt = updated.UpdatedAt
		if err := e.stores.Tasks.Update(ctx, *task); err != nil {
			return fmt.Errorf("align task timestamp: %w", err)
		}
	}

	return nil
}

func (e *SyncEngine) projectContext(
	ctx context.Context,
	projectID string,
	provider model.Provider,
	cache map[string]*projectContext,
) (*projectContext, error) {
	if pc, ok := cache[projectID]; ok {
		return pc, nil
	}

	columns, err := loadColumns(ctx, e.stores.Settings, projectID)
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}
	pc := &projectContext{columns: columns}

	mapping, err := e.stores.ProjectMappings.Get(ctx, projectID, provider)
	if err != nil {
		return nil, fmt.Errorf("load project mapping: %w", err)
	}
	if mapping != nil {
		pc.mapping = mapping
		if pc.stateRows, err = e.stores.StateMappings.ListByMapping(ctx, mapping.ID); err != nil {
			return nil, fmt.Errorf("load state mappings: %w", err)
		}
	}

	cache[projectID] = pc
	return pc, nil
}

func linkLabel(link model.ExternalLink) string {
	if link.RemoteKey != "" {
		return link.RemoteKey
	}
	return link.RemoteID
}
