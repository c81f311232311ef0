package driven

import (
	"context"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// TrackerClient defines the driven port for the remote issue tracker. A
// client is bound to one bearer credential. Transport and API failures are
// returned wrapping model.ErrRemote with the remote error text.
type TrackerClient interface {
	GetViewer(ctx context.Context) (model.Viewer, error)
	ListTeams(ctx context.Context) ([]model.RemoteTeam, error)
	ListProjects(ctx context.Context, teamID string) ([]model.RemoteProject, error)
	ListWorkflowStates(ctx context.Context, teamID string) ([]model.WorkflowState, error)
	ListIssues(ctx context.Context, query model.IssueQuery) (model.IssuePage, error)
	// GetIssue returns nil, nil when the issue does not exist.
	GetIssue(ctx context.Context, id string) (*model.Issue, error)
	// UpdateIssue returns nil, nil when the remote reports no issue was updated.
	UpdateIssue(ctx context.Context, id string, update model.IssueUpdate) (*model.Issue, error)
}

// TrackerClientFactory builds a TrackerClient for a bearer credential.
type TrackerClientFactory func(token string) TrackerClient

// MarkupConverter translates descriptions between remote markup (markdown)
// and local markup (sanitized HTML).
type MarkupConverter interface {
	ToLocal(remote string) string
	ToRemote(local string) (string, error)
}
