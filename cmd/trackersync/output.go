package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type connectionOutput struct {
	ID            string     `json:"id"`
	Provider      string     `json:"provider"`
	WorkspaceID   string     `json:"workspace_id"`
	WorkspaceName string     `json:"workspace_name"`
	AccountLabel  string     `json:"account_label"`
	Enabled       bool       `json:"enabled"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

func toConnectionOutput(c model.ConnectionPublic) connectionOutput {
	return connectionOutput{
		ID:            c.ID,
		Provider:      string(c.Provider),
		WorkspaceID:   c.WorkspaceID,
		WorkspaceName: c.WorkspaceName,
		AccountLabel:  c.AccountLabel,
		Enabled:       c.Enabled,
		LastSyncedAt:  c.LastSyncedAt,
	}
}

type syncOutput struct {
	Scanned int       `json:"scanned"`
	Pulled  int       `json:"pulled"`
	Pushed  int       `json:"pushed"`
	Errors  []string  `json:"errors"`
	At      time.Time `json:"at"`
}

func toSyncOutput(r model.SyncResult) syncOutput {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return syncOutput{Scanned: r.Scanned, Pulled: r.Pulled, Pushed: r.Pushed, Errors: errs, At: r.At}
}
