package application_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/trackersync/internal/adapter/driven/markup"
	"github.com/ericfisherdev/trackersync/internal/adapter/driven/securestore"
	"github.com/ericfisherdev/trackersync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// --- Fake remote tracker ---

type updateCall struct {
	ID     string
	Update model.IssueUpdate
}

type fakeTracker struct {
	mu sync.Mutex

	viewer    model.Viewer
	teams     []model.RemoteTeam
	projects  map[string][]model.RemoteProject
	states    map[string][]model.WorkflowState
	issues    map[string]*model.Issue
	order     []string
	cursor    string
	getErrs   map[string]error
	stateErrs map[string]error
	onGet     func(id string)
	updateNil bool
	updates   []updateCall
	queries   []model.IssueQuery
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		viewer: model.Viewer{
			ID: "user-1", Name: "Ada", Email: "ada@example.com",
			OrganizationID: "org-1", OrganizationName: "Acme",
		},
		teams:     []model.RemoteTeam{{ID: "team-1", Key: "ENG", Name: "Engineering"}},
		projects:  map[string][]model.RemoteProject{"team-1": {{ID: "rp-1", Name: "Roadmap", State: "started"}}},
		states:    map[string][]model.WorkflowState{"team-1": standardStates()},
		issues:    map[string]*model.Issue{},
		getErrs:   map[string]error{},
		stateErrs: map[string]error{},
	}
}

func standardStates() []model.WorkflowState {
	return []model.WorkflowState{
		{ID: "st-triage", Name: "Triage", Type: "triage", Position: 0},
		{ID: "st-backlog", Name: "Backlog", Type: "backlog", Position: 1},
		{ID: "st-todo", Name: "Todo", Type: "unstarted", Position: 2},
		{ID: "st-doing", Name: "In Progress", Type: "started", Position: 3},
		{ID: "st-done", Name: "Done", Type: "completed", Position: 4},
		{ID: "st-canceled", Name: "Canceled", Type: "canceled", Position: 5},
	}
}

func stateByID(id string) model.WorkflowState {
	for _, s := range standardStates() {
		if s.ID == id {
			return s
		}
	}
	return model.WorkflowState{}
}

func (f *fakeTracker) addIssue(issue model.Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := issue
	f.issues[issue.ID] = &stored
	f.order = append(f.order, issue.ID)
}

func (f *fakeTracker) issue(id string) model.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.issues[id]
}

func (f *fakeTracker) updateCalls() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updates...)
}

func (f *fakeTracker) GetViewer(_ context.Context) (model.Viewer, error) {
	return f.viewer, nil
}

func (f *fakeTracker) ListTeams(_ context.Context) ([]model.RemoteTeam, error) {
	return f.teams, nil
}

func (f *fakeTracker) ListProjects(_ context.Context, teamID string) ([]model.RemoteProject, error) {
	return f.projects[teamID], nil
}

func (f *fakeTracker) ListWorkflowStates(_ context.Context, teamID string) ([]model.WorkflowState, error) {
	if err := f.stateErrs[teamID]; err != nil {
		return nil, err
	}
	return f.states[teamID], nil
}

func (f *fakeTracker) ListIssues(_ context.Context, q model.IssueQuery) (model.IssuePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	page := model.IssuePage{NextCursor: f.cursor}
	for _, id := range f.order {
		page.Issues = append(page.Issues, *f.issues[id])
	}
	return page, nil
}

func (f *fakeTracker) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	if f.onGet != nil {
		f.onGet(id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErrs[id]; err != nil {
		return nil, err
	}
	issue, ok := f.issues[id]
	if !ok {
		return nil, nil
	}
	cp := *issue
	return &cp, nil
}

func (f *fakeTracker) UpdateIssue(_ context.Context, id string, update model.IssueUpdate) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{ID: id, Update: update})

	issue, ok := f.issues[id]
	if !ok || f.updateNil {
		return nil, nil
	}
	if update.Title != nil {
		issue.Title = *update.Title
	}
	if update.Description != nil {
		issue.Description = *update.Description
	}
	if update.Priority != nil {
		issue.Priority = *update.Priority
	}
	if update.StateID != nil {
		issue.State = stateByID(*update.StateID)
	}
	issue.UpdatedAt = time.Now().UTC()
	cp := *issue
	return &cp, nil
}

// --- Test environment ---

type testEnv struct {
	db          *sqlite.DB
	stores      application.Stores
	tracker     *fakeTracker
	tokens      []string
	vault       *application.CredentialVault
	clients     *application.TrackerClientProvider
	connections *application.ConnectionService
	mappings    *application.MappingService
	imports     *application.ImportService
	engine      *application.SyncEngine
	links       *application.LinkService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "trackersync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.RunMigrations(db.Writer))

	cipher, err := securestore.NewStaticKeyCipher([]byte(strings.Repeat("k", securestore.KeySize)))
	require.NoError(t, err)

	env := &testEnv{db: db, tracker: newFakeTracker()}
	env.stores = application.Stores{
		Connections:     sqlite.NewConnectionRepo(db),
		ProjectMappings: sqlite.NewProjectMappingRepo(db),
		StateMappings:   sqlite.NewStateMappingRepo(db),
		Tasks:           sqlite.NewTaskRepo(db),
		Links:           sqlite.NewLinkRepo(db),
		FieldStates:     sqlite.NewFieldStateRepo(db),
		Settings:        sqlite.NewSettingsRepo(db),
	}

	factory := func(token string) driven.TrackerClient {
		env.tokens = append(env.tokens, token)
		return env.tracker
	}
	converter := markup.NewConverter()

	env.vault = application.NewCredentialVault(cipher, env.stores.Settings, false)
	env.clients = application.NewTrackerClientProvider(env.vault, env.stores.Connections, factory)
	env.connections = application.NewConnectionService(env.stores.Connections, env.vault, env.clients, factory)
	env.mappings = application.NewMappingService(env.stores, env.clients)
	env.imports = application.NewImportService(env.stores, env.clients, converter)
	env.engine = application.NewSyncEngine(env.stores, env.clients, converter)
	env.links = application.NewLinkService(env.stores.Links)

	return env
}

func (e *testEnv) connect(t *testing.T) model.ConnectionPublic {
	t.Helper()
	conn, err := e.connections.Connect(context.Background(), application.ConnectInput{
		Provider: model.ProviderLinear,
		APIKey:   "lin_api_test",
	})
	require.NoError(t, err)
	return conn
}

func (e *testEnv) mapProject(t *testing.T, connID, projectID string, mode model.SyncMode) model.ProjectMapping {
	t.Helper()
	m, err := e.mappings.SetProjectMapping(context.Background(), application.SetMappingInput{
		ProjectID:    projectID,
		Provider:     model.ProviderLinear,
		ConnectionID: connID,
		TeamID:       "team-1",
		SyncMode:     mode,
	})
	require.NoError(t, err)
	return m
}

// linkTask creates a task whose updated_at column holds rawUpdatedAt
// verbatim, and links it to remoteID.
func (e *testEnv) linkTask(t *testing.T, connID string, task model.Task, remoteID, rawUpdatedAt string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.stores.Tasks.Create(ctx, task))
	_, err := e.db.Writer.ExecContext(ctx, `UPDATE tasks SET updated_at = ? WHERE id = ?`, rawUpdatedAt, task.ID)
	require.NoError(t, err)

	require.NoError(t, e.stores.Links.Create(ctx, model.ExternalLink{
		Provider:     model.ProviderLinear,
		ConnectionID: connID,
		RemoteID:     remoteID,
		RemoteKey:    fmt.Sprintf("ENG-%s", remoteID),
		TaskID:       task.ID,
	}))
}

func (e *testEnv) task(t *testing.T, id string) model.Task {
	t.Helper()
	task, err := e.stores.Tasks.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, task)
	return *task
}

func (e *testEnv) link(t *testing.T, taskID string) model.ExternalLink {
	t.Helper()
	link, err := e.links.GetLink(context.Background(), taskID, model.ProviderLinear)
	require.NoError(t, err)
	return link
}
