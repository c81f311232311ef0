package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

func linearStates() []model.WorkflowState {
	return []model.WorkflowState{
		{ID: "st-backlog", Name: "Backlog", Type: "backlog"},
		{ID: "st-todo", Name: "Todo", Type: "unstarted"},
		{ID: "st-progress", Name: "In Progress", Type: "started"},
		{ID: "st-review", Name: "In Review", Type: "started"},
		{ID: "st-done", Name: "Done", Type: "completed"},
		{ID: "st-canceled", Name: "Canceled", Type: "canceled"},
	}
}

func TestFallbackChain_ReturnsCopy(t *testing.T) {
	chain := workflow.FallbackChain(model.CategoryTriage)
	assert.Equal(t, []model.Category{model.CategoryTriage, model.CategoryUnstarted, model.CategoryBacklog}, chain)

	chain[0] = model.CategoryStarted
	assert.Equal(t, model.CategoryTriage, workflow.FallbackChain(model.CategoryTriage)[0])
}

func TestStatesByType_FirstSeenWins(t *testing.T) {
	byType := workflow.StatesByType(linearStates())
	assert.Equal(t, "st-progress", byType["started"])
	assert.Len(t, byType, 5)
}

func TestBuildStateRows_DefaultBoard(t *testing.T) {
	rows := workflow.BuildStateRows(workflow.DefaultColumns(), linearStates())

	got := make(map[string]string, len(rows))
	for _, r := range rows {
		got[r.LocalStatus] = r.RemoteStateID
	}

	assert.Equal(t, map[string]string{
		"backlog":     "st-backlog",
		"todo":        "st-todo",
		"in_progress": "st-progress",
		"in_review":   "st-progress",
		"done":        "st-done",
		"canceled":    "st-canceled",
	}, got)
}

func TestBuildStateRows_FallbackAndOmission(t *testing.T) {
	columns := workflow.ColumnConfig{Columns: []workflow.Column{
		{ID: "inbox", Category: model.CategoryTriage},
		{ID: "doing", Category: model.CategoryStarted},
		{ID: "dropped", Category: model.CategoryCanceled},
	}}
	// No triage, no started: triage falls back to unstarted, started is omitted,
	// canceled falls back to completed.
	states := []model.WorkflowState{
		{ID: "s-todo", Type: "unstarted"},
		{ID: "s-done", Type: "completed"},
	}

	rows := workflow.BuildStateRows(columns, states)

	assert.Equal(t, []workflow.StateRow{
		{LocalStatus: "inbox", RemoteStateID: "s-todo", RemoteStateType: "unstarted"},
		{LocalStatus: "dropped", RemoteStateID: "s-done", RemoteStateType: "completed"},
	}, rows)
}

func TestLocalStatusFor_PrefersValidExplicitRow(t *testing.T) {
	columns := workflow.DefaultColumns()
	mappings := []model.StateMapping{
		{LocalStatus: "in_review", RemoteStateID: "st-review", RemoteStateType: "started"},
	}

	status := workflow.LocalStatusFor(model.WorkflowState{ID: "st-review", Type: "started"}, columns, mappings)
	assert.Equal(t, "in_review", status)
}

func TestLocalStatusFor_StaleRowIgnored(t *testing.T) {
	columns := workflow.DefaultColumns()
	mappings := []model.StateMapping{
		{LocalStatus: "removed_column", RemoteStateID: "st-review", RemoteStateType: "started"},
	}

	status := workflow.LocalStatusFor(model.WorkflowState{ID: "st-review", Type: "started"}, columns, mappings)
	assert.Equal(t, "in_progress", status)
}

func TestLocalStatusFor_ChainAndDefault(t *testing.T) {
	columns := workflow.ColumnConfig{
		Columns: []workflow.Column{
			{ID: "todo", Category: model.CategoryUnstarted},
			{ID: "doing", Category: model.CategoryStarted},
			{ID: "closed", Category: model.CategoryCompleted},
		},
		DefaultStatus: "doing",
	}

	// triage: no exact column; unstarted chain contains triage.
	assert.Equal(t, "todo", workflow.LocalStatusFor(model.WorkflowState{ID: "x", Type: "triage"}, columns, nil))
	// canceled: completed chain contains canceled.
	assert.Equal(t, "closed", workflow.LocalStatusFor(model.WorkflowState{ID: "y", Type: "canceled"}, columns, nil))
	// unknown type: project default.
	assert.Equal(t, "doing", workflow.LocalStatusFor(model.WorkflowState{ID: "z", Type: "paused"}, columns, nil))
}

func TestRemoteStateFor(t *testing.T) {
	columns := workflow.ColumnConfig{Columns: []workflow.Column{
		{ID: "todo", Category: model.CategoryUnstarted},
		{ID: "blocked", Category: model.CategoryTriage},
		{ID: "doing", Category: model.CategoryStarted},
		{ID: "ghost", Category: model.CategoryCanceled},
	}}
	mappings := []model.StateMapping{
		{LocalStatus: "todo", RemoteStateID: "s-todo", RemoteStateType: "unstarted"},
	}

	id, ok := workflow.RemoteStateFor("todo", columns, mappings)
	assert.True(t, ok)
	assert.Equal(t, "s-todo", id)

	// No explicit row: triage chain reaches unstarted.
	id, ok = workflow.RemoteStateFor("blocked", columns, mappings)
	assert.True(t, ok)
	assert.Equal(t, "s-todo", id)

	_, ok = workflow.RemoteStateFor("doing", columns, mappings)
	assert.False(t, ok)

	_, ok = workflow.RemoteStateFor("not_a_column", columns, mappings)
	assert.False(t, ok)
}
