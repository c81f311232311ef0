package linear

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// defaultPageSize bounds list queries when the caller does not set one.
const defaultPageSize = 50

const issueFields = `
	id
	identifier
	url
	title
	description
	priority
	updatedAt
	state { id name type position }
	assignee { id name email }
	team { id }
	project { id }
`

const viewerQuery = `query {
	viewer {
		id
		name
		email
		organization { id name }
	}
}`

const teamsQuery = `query {
	teams(first: 250) {
		nodes { id key name }
	}
}`

const projectsQuery = `query($teamId: String!) {
	team(id: $teamId) {
		projects(first: 250) {
			nodes { id name state }
		}
	}
}`

const workflowStatesQuery = `query($teamId: String!) {
	team(id: $teamId) {
		states(first: 250) {
			nodes { id name type position }
		}
	}
}`

const teamIssuesQuery = `query($id: String!, $first: Int!, $after: String) {
	team(id: $id) {
		issues(first: $first, after: $after, orderBy: updatedAt) {
			nodes {` + issueFields + `}
			pageInfo { hasNextPage endCursor }
		}
	}
}`

const projectIssuesQuery = `query($id: String!, $first: Int!, $after: String) {
	project(id: $id) {
		issues(first: $first, after: $after, orderBy: updatedAt) {
			nodes {` + issueFields + `}
			pageInfo { hasNextPage endCursor }
		}
	}
}`

const issueQuery = `query($id: String!) {
	issue(id: $id) {` + issueFields + `}
}`

const issueUpdateMutation = `mutation($id: String!, $input: IssueUpdateInput!) {
	issueUpdate(id: $id, input: $input) {
		success
		issue {` + issueFields + `}
	}
}`

type issueNode struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Priority    float64   `json:"priority"`
	UpdatedAt   time.Time `json:"updatedAt"`
	State       *struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Type     string  `json:"type"`
		Position float64 `json:"position"`
	} `json:"state"`
	Assignee *struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"assignee"`
	Team *struct {
		ID string `json:"id"`
	} `json:"team"`
	Project *struct {
		ID string `json:"id"`
	} `json:"project"`
}

type issueConnection struct {
	Nodes    []issueNode `json:"nodes"`
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
}

// toModel maps a GraphQL issue node to the domain model.
func (n issueNode) toModel() model.Issue {
	issue := model.Issue{
		ID:         n.ID,
		Identifier: n.Identifier,
		URL:        n.URL,
		Title:      n.Title,
		Priority:   int(n.Priority),
		UpdatedAt:  n.UpdatedAt.UTC(),
	}
	if n.Description != nil {
		issue.Description = *n.Description
	}
	if n.State != nil {
		issue.State = model.WorkflowState{
			ID: n.State.ID, Name: n.State.Name, Type: n.State.Type, Position: n.State.Position,
		}
	}
	if n.Assignee != nil {
		issue.Assignee = &model.IssueAssignee{ID: n.Assignee.ID, Name: n.Assignee.Name, Email: n.Assignee.Email}
	}
	if n.Team != nil {
		issue.TeamID = n.Team.ID
	}
	if n.Project != nil {
		issue.ProjectID = n.Project.ID
	}
	return issue
}

// GetViewer returns the account and organization behind the credential.
func (c *Client) GetViewer(ctx context.Context) (model.Viewer, error) {
	var data struct {
		Viewer struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Email        string `json:"email"`
			Organization struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"organization"`
		} `json:"viewer"`
	}
	if err := c.do(ctx, viewerQuery, nil, &data); err != nil {
		return model.Viewer{}, fmt.Errorf("fetching viewer: %w", err)
	}

	v := data.Viewer
	return model.Viewer{
		ID:               v.ID,
		Name:             v.Name,
		Email:            v.Email,
		OrganizationID:   v.Organization.ID,
		OrganizationName: v.Organization.Name,
	}, nil
}

// ListTeams returns the teams visible to the credential.
func (c *Client) ListTeams(ctx context.Context) ([]model.RemoteTeam, error) {
	var data struct {
		Teams struct {
			Nodes []struct {
				ID   string `json:"id"`
				Key  string `json:"key"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, teamsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	teams := make([]model.RemoteTeam, 0, len(data.Teams.Nodes))
	for _, n := range data.Teams.Nodes {
		teams = append(teams, model.RemoteTeam{ID: n.ID, Key: n.Key, Name: n.Name})
	}
	return teams, nil
}

// ListProjects returns the projects of a team.
func (c *Client) ListProjects(ctx context.Context, teamID string) ([]model.RemoteProject, error) {
	var data struct {
		Team *struct {
			Projects struct {
				Nodes []struct {
					ID    string `json:"id"`
					Name  string `json:"name"`
					State string `json:"state"`
				} `json:"nodes"`
			} `json:"projects"`
		} `json:"team"`
	}
	if err := c.do(ctx, projectsQuery, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, fmt.Errorf("listing projects for team %s: %w", teamID, err)
	}

	projects := []model.RemoteProject{}
	if data.Team == nil {
		return projects, nil
	}
	for _, n := range data.Team.Projects.Nodes {
		projects = append(projects, model.RemoteProject{ID: n.ID, Name: n.Name, State: n.State})
	}
	return projects, nil
}

// ListWorkflowStates returns the workflow states of a team.
func (c *Client) ListWorkflowStates(ctx context.Context, teamID string) ([]model.WorkflowState, error) {
	var data struct {
		Team *struct {
			States struct {
				Nodes []struct {
					ID       string  `json:"id"`
					Name     string  `json:"name"`
					Type     string  `json:"type"`
					Position float64 `json:"position"`
				} `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	if err := c.do(ctx, workflowStatesQuery, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, fmt.Errorf("listing workflow states for team %s: %w", teamID, err)
	}

	states := []model.WorkflowState{}
	if data.Team == nil {
		return states, nil
	}
	for _, n := range data.Team.States.Nodes {
		states = append(states, model.WorkflowState{ID: n.ID, Name: n.Name, Type: n.Type, Position: n.Position})
	}
	return states, nil
}

// ListIssues returns one page of issues for a project, or for a team when
// no project is given.
func (c *Client) ListIssues(ctx context.Context, q model.IssueQuery) (model.IssuePage, error) {
	first := q.First
	if first <= 0 {
		first = defaultPageSize
	}
	vars := map[string]any{"first": first}
	if q.After != "" {
		vars["after"] = q.After
	}

	var conn *issueConnection
	switch {
	case q.ProjectID != "":
		vars["id"] = q.ProjectID
		var data struct {
			Project *struct {
				Issues issueConnection `json:"issues"`
			} `json:"project"`
		}
		if err := c.do(ctx, projectIssuesQuery, vars, &data); err != nil {
			return model.IssuePage{}, fmt.Errorf("listing issues for project %s: %w", q.ProjectID, err)
		}
		if data.Project != nil {
			conn = &data.Project.Issues
		}
	case q.TeamID != "":
		vars["id"] = q.TeamID
		var data struct {
			Team *struct {
				Issues issueConnection `json:"issues"`
			} `json:"team"`
		}
		if err := c.do(ctx, teamIssuesQuery, vars, &data); err != nil {
			return model.IssuePage{}, fmt.Errorf("listing issues for team %s: %w", q.TeamID, err)
		}
		if data.Team != nil {
			conn = &data.Team.Issues
		}
	default:
		return model.IssuePage{}, fmt.Errorf("listing issues: %w: team or project id required", model.ErrValidation)
	}

	page := model.IssuePage{Issues: []model.Issue{}}
	if conn == nil {
		return page, nil
	}
	for _, n := range conn.Nodes {
		page.Issues = append(page.Issues, n.toModel())
	}
	if conn.PageInfo.HasNextPage {
		page.NextCursor = conn.PageInfo.EndCursor
	}
	return page, nil
}

// GetIssue fetches one issue. Returns nil, nil when the issue does not exist.
func (c *Client) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	var data struct {
		Issue *issueNode `json:"issue"`
	}
	if err := c.do(ctx, issueQuery, map[string]any{"id": id}, &data); err != nil {
		if isAPINotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching issue %s: %w", id, err)
	}
	if data.Issue == nil {
		return nil, nil
	}

	issue := data.Issue.toModel()
	return &issue, nil
}

// UpdateIssue applies the non-nil fields of update. Returns nil, nil when the
// API reports that nothing was updated.
func (c *Client) UpdateIssue(ctx context.Context, id string, update model.IssueUpdate) (*model.Issue, error) {
	input := map[string]any{}
	if update.Title != nil {
		input["title"] = *update.Title
	}
	if update.Description != nil {
		input["description"] = *update.Description
	}
	if update.Priority != nil {
		input["priority"] = *update.Priority
	}
	if update.StateID != nil {
		input["stateId"] = *update.StateID
	}
	if update.AssigneeID != nil {
		input["assigneeId"] = *update.AssigneeID
	}

	var data struct {
		IssueUpdate struct {
			Success bool       `json:"success"`
			Issue   *issueNode `json:"issue"`
		} `json:"issueUpdate"`
	}
	if err := c.do(ctx, issueUpdateMutation, map[string]any{"id": id, "input": input}, &data); err != nil {
		return nil, fmt.Errorf("updating issue %s: %w", id, err)
	}
	if !data.IssueUpdate.Success || data.IssueUpdate.Issue == nil {
		return nil, nil
	}

	issue := data.IssueUpdate.Issue.toModel()
	return &issue, nil
}
