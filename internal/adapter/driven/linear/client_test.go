package linear_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/trackersync/internal/adapter/driven/linear"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// capturedRequest is the decoded body of a GraphQL request seen by the test server.
type capturedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// newTestServer serves a fixed GraphQL response and records the last request.
func newTestServer(t *testing.T, status int, response any) (*httptest.Server, *capturedRequest, *http.Header) {
	t.Helper()
	var captured capturedRequest
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)

	return server, &captured, &headers
}

func issueJSON(id string) map[string]any {
	return map[string]any{
		"id":          id,
		"identifier":  "ENG-7",
		"url":         "https://linear.app/acme/issue/ENG-7",
		"title":       "Fix login",
		"description": "**bold**",
		"priority":    2,
		"updatedAt":   "2025-02-01T10:00:00.000Z",
		"state":       map[string]any{"id": "st-1", "name": "In Progress", "type": "started", "position": 2},
		"assignee":    map[string]any{"id": "u-1", "name": "Ada", "email": "ada@example.com"},
		"team":        map[string]any{"id": "team-1"},
		"project":     nil,
	}
}

func TestGetViewer_Success(t *testing.T) {
	server, captured, headers := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{
			"viewer": map[string]any{
				"id": "u-1", "name": "Ada", "email": "ada@example.com",
				"organization": map[string]any{"id": "org-1", "name": "Acme"},
			},
		},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "oauth-token")
	viewer, err := client.GetViewer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "org-1", viewer.OrganizationID)
	assert.Equal(t, "Acme", viewer.OrganizationName)
	assert.Equal(t, "ada@example.com", viewer.Email)
	assert.Contains(t, captured.Query, "viewer")
	assert.Equal(t, "Bearer oauth-token", headers.Get("Authorization"))
}

func TestClient_PersonalKeyUsesRawAuthorization(t *testing.T) {
	server, _, headers := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"teams": map[string]any{"nodes": []any{}}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "lin_api_abc")
	_, err := client.ListTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "lin_api_abc", headers.Get("Authorization"))
}

func TestListTeams_Success(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"teams": map[string]any{"nodes": []any{
			map[string]any{"id": "team-1", "key": "ENG", "name": "Engineering"},
			map[string]any{"id": "team-2", "key": "OPS", "name": "Operations"},
		}}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	teams, err := client.ListTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, model.RemoteTeam{ID: "team-1", Key: "ENG", Name: "Engineering"}, teams[0])
}

func TestListWorkflowStates_Success(t *testing.T) {
	server, captured, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"team": map[string]any{"states": map[string]any{"nodes": []any{
			map[string]any{"id": "s-1", "name": "Backlog", "type": "backlog", "position": 0},
			map[string]any{"id": "s-2", "name": "Done", "type": "completed", "position": 3},
		}}}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	states, err := client.ListWorkflowStates(context.Background(), "team-1")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "completed", states[1].Type)
	assert.Equal(t, "team-1", captured.Variables["teamId"])
}

func TestListIssues_TeamPage(t *testing.T) {
	server, captured, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"team": map[string]any{"issues": map[string]any{
			"nodes":    []any{issueJSON("iss-1")},
			"pageInfo": map[string]any{"hasNextPage": true, "endCursor": "cursor-2"},
		}}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	page, err := client.ListIssues(context.Background(), model.IssueQuery{TeamID: "team-1", First: 10, After: "cursor-1"})
	require.NoError(t, err)

	require.Len(t, page.Issues, 1)
	issue := page.Issues[0]
	assert.Equal(t, "iss-1", issue.ID)
	assert.Equal(t, "ENG-7", issue.Identifier)
	assert.Equal(t, 2, issue.Priority)
	assert.Equal(t, "started", issue.State.Type)
	require.NotNil(t, issue.Assignee)
	assert.Equal(t, "Ada", issue.Assignee.Name)
	assert.Equal(t, "team-1", issue.TeamID)
	assert.Empty(t, issue.ProjectID)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC), issue.UpdatedAt)
	assert.Equal(t, "cursor-2", page.NextCursor)

	assert.Contains(t, captured.Query, "team(id: $id)")
	assert.Equal(t, "team-1", captured.Variables["id"])
	assert.Equal(t, "cursor-1", captured.Variables["after"])
	assert.EqualValues(t, 10, captured.Variables["first"])
}

func TestListIssues_ProjectWinsAndLastPage(t *testing.T) {
	server, captured, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"project": map[string]any{"issues": map[string]any{
			"nodes":    []any{},
			"pageInfo": map[string]any{"hasNextPage": false, "endCursor": "ignored"},
		}}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	page, err := client.ListIssues(context.Background(), model.IssueQuery{TeamID: "team-1", ProjectID: "rp-1"})
	require.NoError(t, err)
	assert.Empty(t, page.Issues)
	assert.Empty(t, page.NextCursor)
	assert.Contains(t, captured.Query, "project(id: $id)")
	assert.Equal(t, "rp-1", captured.Variables["id"])
}

func TestListIssues_RequiresScope(t *testing.T) {
	client := linear.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:1", "t")
	_, err := client.ListIssues(context.Background(), model.IssueQuery{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestGetIssue_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": nil,
		"errors": []any{map[string]any{
			"message":    "Entity not found: Issue",
			"extensions": map[string]any{"code": "ENTITY_NOT_FOUND"},
		}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	issue, err := client.GetIssue(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestGetIssue_NullIssue(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"issue": nil},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	issue, err := client.GetIssue(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestGetIssue_GraphQLErrorIsRemote(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusBadRequest, map[string]any{
		"errors": []any{map[string]any{"message": "Authentication required"}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	_, err := client.GetIssue(context.Background(), "iss-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRemote)
	assert.Contains(t, err.Error(), "Authentication required")
}

func TestClient_HTTPFailureIsRemote(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusInternalServerError, map[string]any{})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	_, err := client.ListTeams(context.Background())
	assert.ErrorIs(t, err, model.ErrRemote)
}

func TestUpdateIssue_SendsOnlySetFields(t *testing.T) {
	server, captured, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"issueUpdate": map[string]any{"success": true, "issue": issueJSON("iss-1")}},
	})

	title := "New title"
	priority := 4
	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	issue, err := client.UpdateIssue(context.Background(), "iss-1", model.IssueUpdate{Title: &title, Priority: &priority})
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, "iss-1", issue.ID)

	input, ok := captured.Variables["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "New title", input["title"])
	assert.EqualValues(t, 4, input["priority"])
	assert.NotContains(t, input, "description")
	assert.NotContains(t, input, "stateId")
}

func TestUpdateIssue_NoIssueReturned(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"issueUpdate": map[string]any{"success": false, "issue": nil}},
	})

	client := linear.NewClientWithHTTPClient(server.Client(), server.URL, "t")
	issue, err := client.UpdateIssue(context.Background(), "iss-1", model.IssueUpdate{})
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestFactory_BuildsClientForEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"teams": map[string]any{"nodes": []any{}}},
	})

	client := linear.Factory(server.URL)("t")
	teams, err := client.ListTeams(context.Background())
	require.NoError(t, err)
	assert.Empty(t, teams)
}
