package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/trackersync/internal/adapter/driving/http"
	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

// --- Mock implementations ---

type mockConnections struct {
	conns     []model.ConnectionPublic
	teams     []model.RemoteTeam
	projects  []model.RemoteProject
	err       error
	removed   bool
	lastInput application.ConnectInput
	lastTeam  string
}

func (m *mockConnections) Connect(_ context.Context, in application.ConnectInput) (model.ConnectionPublic, error) {
	m.lastInput = in
	if m.err != nil {
		return model.ConnectionPublic{}, m.err
	}
	return m.conns[0], nil
}

func (m *mockConnections) ListConnections(_ context.Context, _ model.Provider) ([]model.ConnectionPublic, error) {
	return m.conns, m.err
}

func (m *mockConnections) Disconnect(_ context.Context, _ string) (bool, error) {
	return m.removed, m.err
}

func (m *mockConnections) ListRemoteTeams(_ context.Context, _ string) ([]model.RemoteTeam, error) {
	return m.teams, m.err
}

func (m *mockConnections) ListRemoteProjects(_ context.Context, _, teamID string) ([]model.RemoteProject, error) {
	m.lastTeam = teamID
	return m.projects, m.err
}

type mockMappings struct {
	mapping   model.ProjectMapping
	columns   workflow.ColumnConfig
	err       error
	lastInput application.SetMappingInput
}

func (m *mockMappings) SetProjectMapping(_ context.Context, in application.SetMappingInput) (model.ProjectMapping, error) {
	m.lastInput = in
	return m.mapping, m.err
}

func (m *mockMappings) GetProjectMapping(_ context.Context, _ string, _ model.Provider) (model.ProjectMapping, error) {
	return m.mapping, m.err
}

func (m *mockMappings) GetProjectColumns(_ context.Context, _ string) (workflow.ColumnConfig, error) {
	return m.columns, m.err
}

func (m *mockMappings) SetProjectColumns(_ context.Context, _ string, cfg workflow.ColumnConfig) (workflow.ColumnConfig, error) {
	if m.err != nil {
		return workflow.ColumnConfig{}, m.err
	}
	if err := cfg.Validate(); err != nil {
		return workflow.ColumnConfig{}, err
	}
	m.columns = cfg
	return cfg, nil
}

type mockImports struct {
	page       model.IssuePage
	result     application.ImportResult
	err        error
	lastImport application.ImportInput
}

func (m *mockImports) ListRemoteIssues(_ context.Context, _ application.ListIssuesInput) (model.IssuePage, error) {
	return m.page, m.err
}

func (m *mockImports) ImportIssues(_ context.Context, in application.ImportInput) (application.ImportResult, error) {
	m.lastImport = in
	return m.result, m.err
}

type mockLinks struct {
	link    model.ExternalLink
	removed bool
	err     error
}

func (m *mockLinks) GetLink(_ context.Context, _ string, _ model.Provider) (model.ExternalLink, error) {
	return m.link, m.err
}

func (m *mockLinks) UnlinkTask(_ context.Context, _ string, _ model.Provider) (bool, error) {
	return m.removed, m.err
}

type mockRunner struct {
	result     model.SyncResult
	err        error
	lastFilter model.SyncFilter
}

func (m *mockRunner) SyncNow(_ context.Context, filter model.SyncFilter) (model.SyncResult, error) {
	m.lastFilter = filter
	return m.result, m.err
}

type mockHealth struct {
	report application.HealthReport
}

func (m *mockHealth) Check(context.Context) application.HealthReport { return m.report }

// --- Test helpers ---

var (
	testTime    = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	testTimeStr = "2026-02-10T12:00:00Z"
)

func setupMux(svc httphandler.Services) http.Handler {
	h := httphandler.NewHandler(svc, slog.Default())
	return httphandler.NewServeMux(h, slog.Default())
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Tests ---

func TestConnect(t *testing.T) {
	conns := &mockConnections{conns: []model.ConnectionPublic{{
		ID: "conn-1", Provider: model.ProviderLinear, WorkspaceID: "org-1", WorkspaceName: "Acme",
		AccountLabel: "ada@example.com", Enabled: true, CreatedAt: testTime, UpdatedAt: testTime,
	}}}
	mux := setupMux(httphandler.Services{Connections: conns})

	rec := do(t, mux, http.MethodPost, "/api/v1/connections", `{"provider":"linear","api_key":"lin_api_x","label":"ops"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "conn-1", body["id"])
	assert.Equal(t, "Acme", body["workspace_name"])
	assert.Equal(t, testTimeStr, body["created_at"])
	assert.NotContains(t, body, "credential_ref")
	assert.NotContains(t, body, "last_synced_at")

	assert.Equal(t, application.ConnectInput{Provider: model.ProviderLinear, APIKey: "lin_api_x", Label: "ops"}, conns.lastInput)
}

func TestConnect_InvalidBody(t *testing.T) {
	mux := setupMux(httphandler.Services{Connections: &mockConnections{}})

	for _, body := range []string{`not json`, `{"api_key":"x","unknown":1}`, ``} {
		rec := do(t, mux, http.MethodPost, "/api/v1/connections", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", fmt.Errorf("%w: API key is required", model.ErrValidation), http.StatusBadRequest, "validation error: API key is required"},
		{"not found", fmt.Errorf("%w: connection c1", model.ErrNotFound), http.StatusNotFound, "not found: connection c1"},
		{"security", driven.ErrSecurityUnavailable, http.StatusForbidden, "security error: secure storage unavailable"},
		{"remote", fmt.Errorf("verify credential: %w", fmt.Errorf("%w: authentication failed", model.ErrRemote)), http.StatusBadGateway, "verify credential: remote error: authentication failed"},
		{"internal", errors.New("disk full"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(httphandler.Services{Connections: &mockConnections{err: tt.err}})

			rec := do(t, mux, http.MethodPost, "/api/v1/connections", `{"api_key":"x"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			decodeJSON(t, rec, &body)
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestListConnections(t *testing.T) {
	mux := setupMux(httphandler.Services{Connections: &mockConnections{}})

	rec := do(t, mux, http.MethodGet, "/api/v1/connections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body []any
	decodeJSON(t, rec, &body)
	assert.Empty(t, body)
	assert.NotNil(t, body)

	rec = do(t, mux, http.MethodGet, "/api/v1/connections?provider=jira", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisconnect(t *testing.T) {
	mux := setupMux(httphandler.Services{Connections: &mockConnections{removed: true}})

	rec := do(t, mux, http.MethodDelete, "/api/v1/connections/conn-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	decodeJSON(t, rec, &body)
	assert.True(t, body["removed"])
}

func TestListRemoteTeamsAndProjects(t *testing.T) {
	conns := &mockConnections{
		teams:    []model.RemoteTeam{{ID: "team-1", Key: "ENG", Name: "Engineering"}},
		projects: []model.RemoteProject{{ID: "rp-1", Name: "Roadmap", State: "started"}},
	}
	mux := setupMux(httphandler.Services{Connections: conns})

	rec := do(t, mux, http.MethodGet, "/api/v1/connections/conn-1/teams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var teams []map[string]string
	decodeJSON(t, rec, &teams)
	require.Len(t, teams, 1)
	assert.Equal(t, "ENG", teams[0]["key"])

	rec = do(t, mux, http.MethodGet, "/api/v1/connections/conn-1/teams/team-1/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var projects []map[string]string
	decodeJSON(t, rec, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "Roadmap", projects[0]["name"])
	assert.Equal(t, "team-1", conns.lastTeam)
}

func TestSetProjectMapping(t *testing.T) {
	mappings := &mockMappings{mapping: model.ProjectMapping{
		ID: "map-1", ProjectID: "proj-1", Provider: model.ProviderLinear, ConnectionID: "conn-1",
		TeamID: "team-1", TeamKey: "ENG", SyncMode: model.SyncModeTwoWay, UpdatedAt: testTime,
	}}
	mux := setupMux(httphandler.Services{Mappings: mappings})

	rec := do(t, mux, http.MethodPut, "/api/v1/projects/proj-1/mappings/linear",
		`{"connection_id":"conn-1","team_id":"team-1","sync_mode":"two_way"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "map-1", body["id"])
	assert.Equal(t, "two_way", body["sync_mode"])
	assert.Equal(t, "ENG", body["team_key"])

	assert.Equal(t, application.SetMappingInput{
		ProjectID:    "proj-1",
		Provider:     model.ProviderLinear,
		ConnectionID: "conn-1",
		TeamID:       "team-1",
		SyncMode:     model.SyncModeTwoWay,
	}, mappings.lastInput)
}

func TestProjectMapping_UnknownProvider(t *testing.T) {
	mux := setupMux(httphandler.Services{Mappings: &mockMappings{}})

	rec := do(t, mux, http.MethodGet, "/api/v1/projects/proj-1/mappings/jira", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProjectMapping_NotFound(t *testing.T) {
	mux := setupMux(httphandler.Services{Mappings: &mockMappings{err: fmt.Errorf("%w: no mapping", model.ErrNotFound)}})

	rec := do(t, mux, http.MethodGet, "/api/v1/projects/proj-1/mappings/linear", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectColumns(t *testing.T) {
	mux := setupMux(httphandler.Services{Mappings: &mockMappings{columns: workflow.DefaultColumns()}})

	rec := do(t, mux, http.MethodGet, "/api/v1/projects/proj-1/columns", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg workflow.ColumnConfig
	decodeJSON(t, rec, &cfg)
	assert.Equal(t, workflow.DefaultColumns(), cfg)

	rec = do(t, mux, http.MethodPut, "/api/v1/projects/proj-1/columns",
		`{"columns":[{"id":"todo","name":"Todo","category":"unstarted"},{"id":"done","name":"Done","category":"completed"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPut, "/api/v1/projects/proj-1/columns",
		`{"columns":[{"id":"todo","name":"Todo","category":"sideways"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRemoteIssues(t *testing.T) {
	imports := &mockImports{page: model.IssuePage{
		Issues: []model.Issue{{
			ID: "iss-1", Identifier: "ENG-1", Title: "First", Priority: 2,
			State:    model.WorkflowState{ID: "st-1", Name: "Todo", Type: "unstarted"},
			Assignee: &model.IssueAssignee{Name: "Ada"}, UpdatedAt: testTime, LinkedTaskID: "task-1",
		}},
		NextCursor: "c2",
	}}
	mux := setupMux(httphandler.Services{Imports: imports})

	rec := do(t, mux, http.MethodPost, "/api/v1/remote-issues/search", `{"connection_id":"conn-1","team_id":"team-1","first":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Issues     []map[string]any `json:"issues"`
		NextCursor string           `json:"next_cursor"`
	}
	decodeJSON(t, rec, &body)
	assert.Equal(t, "c2", body.NextCursor)
	require.Len(t, body.Issues, 1)
	assert.Equal(t, "ENG-1", body.Issues[0]["identifier"])
	assert.Equal(t, "unstarted", body.Issues[0]["state_type"])
	assert.Equal(t, "Ada", body.Issues[0]["assignee"])
	assert.Equal(t, "task-1", body.Issues[0]["linked_task_id"])
}

func TestImportIssues(t *testing.T) {
	imports := &mockImports{result: application.ImportResult{Imported: 2, Linked: 1, NextCursor: "c3"}}
	mux := setupMux(httphandler.Services{Imports: imports})

	rec := do(t, mux, http.MethodPost, "/api/v1/imports",
		`{"connection_id":"conn-1","project_id":"proj-1","issue_ids":["iss-1","iss-2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, float64(2), body["imported"])
	assert.Equal(t, float64(1), body["linked"])
	assert.Equal(t, "c3", body["next_cursor"])
	assert.Equal(t, []string{"iss-1", "iss-2"}, imports.lastImport.IssueIDs)
}

func TestSyncNow(t *testing.T) {
	runner := &mockRunner{result: model.SyncResult{Scanned: 3, Pulled: 1, Pushed: 1, At: testTime}}
	mux := setupMux(httphandler.Services{Sync: runner})

	rec := do(t, mux, http.MethodPost, "/api/v1/sync", `{"task_id":"task-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, float64(3), body["scanned"])
	assert.Equal(t, testTimeStr, body["at"])
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	assert.Empty(t, errs)
	assert.Equal(t, model.SyncFilter{TaskID: "task-1"}, runner.lastFilter)

	// An empty body syncs everything.
	rec = do(t, mux, http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.SyncFilter{}, runner.lastFilter)
}

func TestSyncNow_Canceled(t *testing.T) {
	mux := setupMux(httphandler.Services{Sync: &mockRunner{err: context.Canceled}})

	rec := do(t, mux, http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLinks(t *testing.T) {
	links := &mockLinks{
		link: model.ExternalLink{
			ID: "link-1", Provider: model.ProviderLinear, ConnectionID: "conn-1", RemoteID: "iss-1",
			RemoteKey: "ENG-1", TaskID: "task-1", SyncState: model.SyncStateError, LastError: "ENG-1: Remote issue not found",
		},
		removed: true,
	}
	mux := setupMux(httphandler.Services{Links: links})

	rec := do(t, mux, http.MethodGet, "/api/v1/tasks/task-1/links/linear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "error", body["sync_state"])
	assert.Equal(t, "ENG-1: Remote issue not found", body["last_error"])

	rec = do(t, mux, http.MethodDelete, "/api/v1/tasks/task-1/links/linear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var removed map[string]bool
	decodeJSON(t, rec, &removed)
	assert.True(t, removed["removed"])
}

func TestHealth(t *testing.T) {
	last := testTime
	tests := []struct {
		name       string
		health     *mockHealth
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "ok with last sync",
			health:     &mockHealth{report: application.HealthReport{Status: "ok", Database: "ok", LastSyncAt: &last, LastSyncErrors: 2}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, testTimeStr, body["last_sync_at"])
				assert.Equal(t, float64(2), body["last_sync_errors"])
			},
		},
		{
			name:       "degraded",
			health:     &mockHealth{report: application.HealthReport{Status: "degraded", Database: "database is locked"}},
			wantStatus: http.StatusServiceUnavailable,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "database is locked", body["database"])
				assert.NotContains(t, body, "last_sync_at")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(httphandler.Services{Health: tt.health})

			rec := do(t, mux, http.MethodGet, "/api/v1/health", "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			decodeJSON(t, rec, &body)
			tt.check(t, body)
		})
	}
}

func TestUnwiredServiceIsUnavailable(t *testing.T) {
	mux := setupMux(httphandler.Services{})

	rec := do(t, mux, http.MethodGet, "/api/v1/connections", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	mux := setupMux(httphandler.Services{})

	rec := do(t, mux, http.MethodGet, "/api/v1/health", "")
	assert.NotEmpty(t, rec.Header().Get(httphandler.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(httphandler.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(httphandler.RequestIDHeader))
}

func TestMethodNotAllowed(t *testing.T) {
	mux := setupMux(httphandler.Services{})

	rec := do(t, mux, http.MethodPatch, "/api/v1/connections", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
