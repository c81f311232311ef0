package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// Connect verifies a credential and saves the connection.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if h.svc.Connections == nil {
		writeUnavailable(w)
		return
	}

	var req ConnectRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	conn, err := h.svc.Connections.Connect(r.Context(), application.ConnectInput{
		Provider: model.Provider(req.Provider),
		APIKey:   req.APIKey,
		Label:    req.Label,
	})
	if err != nil {
		h.writeServiceError(w, r, "connect", err)
		return
	}

	writeJSON(w, http.StatusCreated, toConnectionResponse(conn))
}

// ListConnections lists connections, optionally for one provider.
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	if h.svc.Connections == nil {
		writeUnavailable(w)
		return
	}

	provider := model.Provider(r.URL.Query().Get("provider"))
	if provider != "" && !provider.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported provider")
		return
	}

	conns, err := h.svc.Connections.ListConnections(r.Context(), provider)
	if err != nil {
		h.writeServiceError(w, r, "list connections", err)
		return
	}

	resp := make([]ConnectionResponse, 0, len(conns))
	for _, c := range conns {
		resp = append(resp, toConnectionResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Disconnect removes a connection with its mappings, links and credential.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if h.svc.Connections == nil {
		writeUnavailable(w)
		return
	}

	removed, err := h.svc.Connections.Disconnect(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, "disconnect", err)
		return
	}

	writeJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// ListRemoteTeams lists the teams visible to a connection.
func (h *Handler) ListRemoteTeams(w http.ResponseWriter, r *http.Request) {
	if h.svc.Connections == nil {
		writeUnavailable(w)
		return
	}

	teams, err := h.svc.Connections.ListRemoteTeams(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, "list remote teams", err)
		return
	}

	resp := make([]RemoteTeamResponse, 0, len(teams))
	for _, t := range teams {
		resp = append(resp, RemoteTeamResponse{ID: t.ID, Key: t.Key, Name: t.Name})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRemoteProjects lists the projects of a remote team.
func (h *Handler) ListRemoteProjects(w http.ResponseWriter, r *http.Request) {
	if h.svc.Connections == nil {
		writeUnavailable(w)
		return
	}

	projects, err := h.svc.Connections.ListRemoteProjects(r.Context(), r.PathValue("id"), r.PathValue("teamId"))
	if err != nil {
		h.writeServiceError(w, r, "list remote projects", err)
		return
	}

	resp := make([]RemoteProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, RemoteProjectResponse{ID: p.ID, Name: p.Name, State: p.State})
	}

	writeJSON(w, http.StatusOK, resp)
}
