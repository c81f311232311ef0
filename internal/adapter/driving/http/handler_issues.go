package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/trackersync/internal/application"
)

// ListRemoteIssues returns a page of remote issues annotated with links.
func (h *Handler) ListRemoteIssues(w http.ResponseWriter, r *http.Request) {
	if h.svc.Imports == nil {
		writeUnavailable(w)
		return
	}

	var req SearchIssuesRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	page, err := h.svc.Imports.ListRemoteIssues(r.Context(), application.ListIssuesInput{
		ConnectionID: req.ConnectionID,
		TeamID:       req.TeamID,
		ProjectID:    req.ProjectID,
		First:        req.First,
		After:        req.After,
	})
	if err != nil {
		h.writeServiceError(w, r, "list remote issues", err)
		return
	}

	resp := IssuePageResponse{
		Issues:     make([]IssueResponse, 0, len(page.Issues)),
		NextCursor: page.NextCursor,
	}
	for _, issue := range page.Issues {
		resp.Issues = append(resp.Issues, toIssueResponse(issue))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ImportIssues imports remote issues into a local project.
func (h *Handler) ImportIssues(w http.ResponseWriter, r *http.Request) {
	if h.svc.Imports == nil {
		writeUnavailable(w)
		return
	}

	var req ImportRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	result, err := h.svc.Imports.ImportIssues(r.Context(), application.ImportInput{
		ConnectionID:    req.ConnectionID,
		ProjectID:       req.ProjectID,
		TeamID:          req.TeamID,
		RemoteProjectID: req.RemoteProjectID,
		First:           req.First,
		After:           req.After,
		IssueIDs:        req.IssueIDs,
	})
	if err != nil {
		h.writeServiceError(w, r, "import issues", err)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Imported:   result.Imported,
		Linked:     result.Linked,
		NextCursor: result.NextCursor,
	})
}

// GetLink returns a task's external link.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	if h.svc.Links == nil {
		writeUnavailable(w)
		return
	}

	provider, ok := pathProvider(w, r)
	if !ok {
		return
	}

	link, err := h.svc.Links.GetLink(r.Context(), r.PathValue("taskId"), provider)
	if err != nil {
		h.writeServiceError(w, r, "get link", err)
		return
	}

	writeJSON(w, http.StatusOK, toLinkResponse(link))
}

// UnlinkTask removes a task's external link.
func (h *Handler) UnlinkTask(w http.ResponseWriter, r *http.Request) {
	if h.svc.Links == nil {
		writeUnavailable(w)
		return
	}

	provider, ok := pathProvider(w, r)
	if !ok {
		return
	}

	removed, err := h.svc.Links.UnlinkTask(r.Context(), r.PathValue("taskId"), provider)
	if err != nil {
		h.writeServiceError(w, r, "unlink task", err)
		return
	}

	writeJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}
