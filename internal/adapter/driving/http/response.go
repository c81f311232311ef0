package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeUnavailable(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "service unavailable")
}

// statusFor maps an application error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSecurity):
		return http.StatusForbidden
	case errors.Is(err, model.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError classifies err and writes it. Unclassified errors are
// logged and hidden behind a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}

	if status == http.StatusBadGateway {
		h.logger.Warn("remote tracker error", "op", op, "error", err)
	}
	writeError(w, status, err.Error())
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ConnectRequest is the JSON body for the connect endpoint.
type ConnectRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Label    string `json:"label"`
}

// SetMappingRequest is the JSON body for the project mapping endpoint.
type SetMappingRequest struct {
	ConnectionID    string `json:"connection_id"`
	TeamID          string `json:"team_id"`
	RemoteProjectID string `json:"remote_project_id"`
	SyncMode        string `json:"sync_mode"`
}

// SearchIssuesRequest is the JSON body for the remote issue search endpoint.
type SearchIssuesRequest struct {
	ConnectionID string `json:"connection_id"`
	TeamID       string `json:"team_id"`
	ProjectID    string `json:"project_id"`
	First        int    `json:"first"`
	After        string `json:"after"`
}

// ImportRequest is the JSON body for the import endpoint.
type ImportRequest struct {
	ConnectionID    string   `json:"connection_id"`
	ProjectID       string   `json:"project_id"`
	TeamID          string   `json:"team_id"`
	RemoteProjectID string   `json:"remote_project_id"`
	First           int      `json:"first"`
	After           string   `json:"after"`
	IssueIDs        []string `json:"issue_ids"`
}

// SyncRequest is the optional JSON body for the sync endpoint.
type SyncRequest struct {
	ConnectionID string `json:"connection_id"`
	TaskID       string `json:"task_id"`
	ProjectID    string `json:"project_id"`
}

// ConnectionResponse is the JSON representation of a connection. It never
// carries the credential.
type ConnectionResponse struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	AccountLabel  string `json:"account_label"`
	Enabled       bool   `json:"enabled"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	LastSyncedAt  string `json:"last_synced_at,omitempty"`
}

// RemoteTeamResponse is a remote team.
type RemoteTeamResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// RemoteProjectResponse is a remote project.
type RemoteProjectResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// MappingResponse is the JSON representation of a project mapping.
type MappingResponse struct {
	ID              string `json:"id"`
	ProjectID       string `json:"project_id"`
	Provider        string `json:"provider"`
	ConnectionID    string `json:"connection_id"`
	TeamID          string `json:"team_id"`
	TeamKey         string `json:"team_key"`
	RemoteProjectID string `json:"remote_project_id,omitempty"`
	SyncMode        string `json:"sync_mode"`
	UpdatedAt       string `json:"updated_at"`
}

// IssueResponse is a remote issue.
type IssueResponse struct {
	ID           string `json:"id"`
	Identifier   string `json:"identifier"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     int    `json:"priority"`
	StateID      string `json:"state_id"`
	StateName    string `json:"state_name"`
	StateType    string `json:"state_type"`
	Assignee     string `json:"assignee,omitempty"`
	UpdatedAt    string `json:"updated_at"`
	LinkedTaskID string `json:"linked_task_id,omitempty"`
}

// IssuePageResponse is one page of remote issues.
type IssuePageResponse struct {
	Issues     []IssueResponse `json:"issues"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ImportResponse summarizes an import.
type ImportResponse struct {
	Imported   int    `json:"imported"`
	Linked     int    `json:"linked"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// SyncResultResponse summarizes a sync pass.
type SyncResultResponse struct {
	Scanned           int      `json:"scanned"`
	Pushed            int      `json:"pushed"`
	Pulled            int      `json:"pulled"`
	ConflictsResolved int      `json:"conflicts_resolved"`
	Errors            []string `json:"errors"`
	At                string   `json:"at"`
}

// LinkResponse is the JSON representation of an external link.
type LinkResponse struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	ConnectionID string `json:"connection_id"`
	RemoteID     string `json:"remote_id"`
	RemoteKey    string `json:"remote_key"`
	RemoteURL    string `json:"remote_url,omitempty"`
	TaskID       string `json:"task_id"`
	SyncState    string `json:"sync_state"`
	LastSyncAt   string `json:"last_sync_at,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// RemovedResponse reports whether a delete removed anything.
type RemovedResponse struct {
	Removed bool `json:"removed"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	LastSyncAt     string `json:"last_sync_at,omitempty"`
	LastSyncErrors int    `json:"last_sync_errors"`
	Time           string `json:"time"`
}

func formatOptional(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toConnectionResponse(c model.ConnectionPublic) ConnectionResponse {
	return ConnectionResponse{
		ID:            c.ID,
		Provider:      string(c.Provider),
		WorkspaceID:   c.WorkspaceID,
		WorkspaceName: c.WorkspaceName,
		AccountLabel:  c.AccountLabel,
		Enabled:       c.Enabled,
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     c.UpdatedAt.UTC().Format(time.RFC3339),
		LastSyncedAt:  formatOptional(c.LastSyncedAt),
	}
}

func toMappingResponse(m model.ProjectMapping) MappingResponse {
	return MappingResponse{
		ID:              m.ID,
		ProjectID:       m.ProjectID,
		Provider:        string(m.Provider),
		ConnectionID:    m.ConnectionID,
		TeamID:          m.TeamID,
		TeamKey:         m.TeamKey,
		RemoteProjectID: m.RemoteProjectID,
		SyncMode:        string(m.SyncMode),
		UpdatedAt:       m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toIssueResponse(i model.Issue) IssueResponse {
	resp := IssueResponse{
		ID:           i.ID,
		Identifier:   i.Identifier,
		URL:          i.URL,
		Title:        i.Title,
		Description:  i.Description,
		Priority:     i.Priority,
		StateID:      i.State.ID,
		StateName:    i.State.Name,
		StateType:    i.State.Type,
		UpdatedAt:    i.UpdatedAt.UTC().Format(time.RFC3339),
		LinkedTaskID: i.LinkedTaskID,
	}
	if i.Assignee != nil {
		resp.Assignee = i.Assignee.Name
	}
	return resp
}

// toSyncResultResponse keeps Errors a non-nil array.
func toSyncResultResponse(r model.SyncResult) SyncResultResponse {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return SyncResultResponse{
		Scanned:           r.Scanned,
		Pushed:            r.Pushed,
		Pulled:            r.Pulled,
		ConflictsResolved: r.ConflictsResolved,
		Errors:            errs,
		At:                r.At.UTC().Format(time.RFC3339),
	}
}

func toLinkResponse(l model.ExternalLink) LinkResponse {
	return LinkResponse{
		ID:           l.ID,
		Provider:     string(l.Provider),
		ConnectionID: l.ConnectionID,
		RemoteID:     l.RemoteID,
		RemoteKey:    l.RemoteKey,
		RemoteURL:    l.RemoteURL,
		TaskID:       l.TaskID,
		SyncState:    string(l.SyncState),
		LastSyncAt:   formatOptional(l.LastSyncAt),
		LastError:    l.LastError,
	}
}
