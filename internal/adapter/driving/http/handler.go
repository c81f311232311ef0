package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// ConnectionManager is the connection surface of the application layer.
type ConnectionManager interface {
	Connect(ctx context.Context, in application.ConnectInput) (model.ConnectionPublic, error)
	ListConnections(ctx context.Context, provider model.Provider) ([]model.ConnectionPublic, error)
	Disconnect(ctx context.Context, connectionID string) (bool, error)
	ListRemoteTeams(ctx context.Context, connectionID string) ([]model.RemoteTeam, error)
	ListRemoteProjects(ctx context.Context, connectionID, teamID string) ([]model.RemoteProject, error)
}

// MappingManager is the project mapping and column surface.
type MappingManager interface {
	SetProjectMapping(ctx context.Context, in application.SetMappingInput) (model.ProjectMapping, error)
	GetProjectMapping(ctx context.Context, projectID string, provider model.Provider) (model.ProjectMapping, error)
	GetProjectColumns(ctx context.Context, projectID string) (workflow.ColumnConfig, error)
	SetProjectColumns(ctx context.Context, projectID string, cfg workflow.ColumnConfig) (workflow.ColumnConfig, error)
}

// IssueImporter browses and imports remote issues.
type IssueImporter interface {
	ListRemoteIssues(ctx context.Context, in application.ListIssuesInput) (model.IssuePage, error)
	ImportIssues(ctx context.Context, in application.ImportInput) (application.ImportResult, error)
}

// LinkManager reads and removes task links.
type LinkManager interface {
	GetLink(ctx context.Context, taskID string, provider model.Provider) (model.ExternalLink, error)
	UnlinkTask(ctx context.Context, taskID string, provider model.Provider) (bool, error)
}

// HealthChecker produces the health report.
type HealthChecker interface {
	Check(ctx context.Context) application.HealthReport
}

// Services groups the application services the API exposes. Any field may
// be nil, in which case its routes answer 503.
type Services struct {
	Connections ConnectionManager
	Mappings    MappingManager
	Imports     IssueImporter
	Links       LinkManager
	Sync        application.SyncRunner
	Health      HealthChecker
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a Handler over the given services.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request id, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/connections", h.Connect)
	mux.HandleFunc("GET /api/v1/connections", h.ListConnections)
	mux.HandleFunc("DELETE /api/v1/connections/{id}", h.Disconnect)
	mux.HandleFunc("GET /api/v1/connections/{id}/teams", h.ListRemoteTeams)
	mux.HandleFunc("GET /api/v1/connections/{id}/teams/{teamId}/projects", h.ListRemoteProjects)

	mux.HandleFunc("PUT /api/v1/projects/{projectId}/mappings/{provider}", h.SetProjectMapping)
	mux.HandleFunc("GET /api/v1/projects/{projectId}/mappings/{provider}", h.GetProjectMapping)
	mux.HandleFunc("GET /api/v1/projects/{projectId}/columns", h.GetProjectColumns)
	mux.HandleFunc("PUT /api/v1/projects/{projectId}/columns", h.SetProjectColumns)

	mux.HandleFunc("POST /api/v1/remote-issues/search", h.ListRemoteIssues)
	mux.HandleFunc("POST /api/v1/imports", h.ImportIssues)
	mux.HandleFunc("POST /api/v1/sync", h.SyncNow)

	mux.HandleFunc("GET /api/v1/tasks/{taskId}/links/{provider}", h.GetLink)
	mux.HandleFunc("DELETE /api/v1/tasks/{taskId}/links/{provider}", h.UnlinkTask)

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// SyncNow runs a sync pass narrowed by the optional request body.
func (h *Handler) SyncNow(w http.ResponseWriter, r *http.Request) {
	if h.svc.Sync == nil {
		writeUnavailable(w)
		return
	}

	var req SyncRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	result, err := h.svc.Sync.SyncNow(r.Context(), model.SyncFilter{
		ConnectionID: req.ConnectionID,
		TaskID:       req.TaskID,
		ProjectID:    req.ProjectID,
	})
	if err != nil {
		h.writeServiceError(w, r, "sync", err)
		return
	}

	writeJSON(w, http.StatusOK, toSyncResultResponse(result))
}

// Health reports store reachability and the last scheduled sync.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Time:     time.Now().UTC().Format(time.RFC3339),
	}

	if h.svc.Health != nil {
		report := h.svc.Health.Check(r.Context())
		resp.Status = report.Status
		resp.Database = report.Database
		resp.LastSyncErrors = report.LastSyncErrors
		if report.LastSyncAt != nil {
			resp.LastSyncAt = report.LastSyncAt.UTC().Format(time.RFC3339)
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// decodeBody decodes the JSON request body into v. When optional is set an
// empty body leaves v untouched. On failure a 400 is written and false is
// returned.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathProvider reads and validates the {provider} path segment.
func pathProvider(w http.ResponseWriter, r *http.Request) (model.Provider, bool) {
	provider := model.Provider(r.PathValue("provider"))
	if !provider.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported provider")
		return "", false
	}
	return provider, true
}
