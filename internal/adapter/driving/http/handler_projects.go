package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/workflow"
)

// SetProjectMapping binds a local project to a remote team.
func (h *Handler) SetProjectMapping(w http.ResponseWriter, r *http.Request) {
	if h.svc.Mappings == nil {
		writeUnavailable(w)
		return
	}

	provider, ok := pathProvider(w, r)
	if !ok {
		return
	}

	var req SetMappingRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	mapping, err := h.svc.Mappings.SetProjectMapping(r.Context(), application.SetMappingInput{
		ProjectID:       r.PathValue("projectId"),
		Provider:        provider,
		ConnectionID:    req.ConnectionID,
		TeamID:          req.TeamID,
		RemoteProjectID: req.RemoteProjectID,
		SyncMode:        model.SyncMode(req.SyncMode),
	})
	if err != nil {
		h.writeServiceError(w, r, "set project mapping", err)
		return
	}

	writeJSON(w, http.StatusOK, toMappingResponse(mapping))
}

// GetProjectMapping returns the mapping of a project for a provider.
func (h *Handler) GetProjectMapping(w http.ResponseWriter, r *http.Request) {
	if h.svc.Mappings == nil {
		writeUnavailable(w)
		return
	}

	provider, ok := pathProvider(w, r)
	if !ok {
		return
	}

	mapping, err := h.svc.Mappings.GetProjectMapping(r.Context(), r.PathValue("projectId"), provider)
	if err != nil {
		h.writeServiceError(w, r, "get project mapping", err)
		return
	}

	writeJSON(w, http.StatusOK, toMappingResponse(mapping))
}

// GetProjectColumns returns the project's column configuration.
func (h *Handler) GetProjectColumns(w http.ResponseWriter, r *http.Request) {
	if h.svc.Mappings == nil {
		writeUnavailable(w)
		return
	}

	cfg, err := h.svc.Mappings.GetProjectColumns(r.Context(), r.PathValue("projectId"))
	if err != nil {
		h.writeServiceError(w, r, "get project columns", err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// SetProjectColumns replaces the project's column configuration.
func (h *Handler) SetProjectColumns(w http.ResponseWriter, r *http.Request) {
	if h.svc.Mappings == nil {
		writeUnavailable(w)
		return
	}

	var req workflow.ColumnConfig
	if !decodeBody(w, r, &req, false) {
		return
	}

	cfg, err := h.svc.Mappings.SetProjectColumns(r.Context(), r.PathValue("projectId"), req)
	if err != nil {
		h.writeServiceError(w, r, "set project columns", err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}
