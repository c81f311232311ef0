package model

import "time"

// Viewer is the account that owns a remote credential.
type Viewer struct {
	ID               string
	Name             string
	Email            string
	OrganizationID   string
	OrganizationName string
}

// RemoteTeam is a remote team (workflow owner).
type RemoteTeam struct {
	ID   string
	Key  string
	Name string
}

// RemoteProject is a remote project within a team.
type RemoteProject struct {
	ID    string
	Name  string
	State string
}

// WorkflowState is a remote workflow state. Type is one of the Category values
// for well-formed remotes, but is kept as a string since remotes may add types.
type WorkflowState struct {
	ID       string
	Name     string
	Type     string
	Position float64
}

// Issue is a remote issue as returned by the tracker.
type Issue struct {
	ID          string
	Identifier  string
	URL         string
	Title       string
	Description string // Remote markup (markdown).
	Priority    int    // 0 (none) .. 4 on the remote scale; larger values are clamped.
	State       WorkflowState
	Assignee    *IssueAssignee
	TeamID      string
	ProjectID   string
	UpdatedAt   time.Time

	// LinkedTaskID is populated by ListRemoteIssues, not by the tracker.
	LinkedTaskID string
}

// IssueAssignee is the remote user assigned to an issue.
type IssueAssignee struct {
	ID    string
	Name  string
	Email string
}

// IssueQuery selects a page of remote issues. Exactly one of TeamID and
// ProjectID is normally set; ProjectID wins when both are.
type IssueQuery struct {
	TeamID    string
	ProjectID string
	First     int
	After     string
}

// IssuePage is one page of remote issues.
type IssuePage struct {
	Issues     []Issue
	NextCursor string // Empty when there are no more pages.
}

// IssueUpdate carries the fields to change on a remote issue. Nil fields are
// left untouched.
type IssueUpdate struct {
	Title       *string
	Description *string
	Priority    *int
	StateID     *string
	AssigneeID  *string
}
