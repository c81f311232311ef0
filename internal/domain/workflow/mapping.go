package workflow

import "github.com/ericfisherdev/trackersync/internal/domain/model"

// StateRow is a computed local status -> remote state assignment.
type StateRow struct {
	LocalStatus     string
	RemoteStateID   string
	RemoteStateType string
}

// BuildStateRows computes one row per column whose category can be resolved
// against the remote team's states. Columns with no resolvable type are
// omitted.
func BuildStateRows(columns ColumnConfig, states []model.WorkflowState) []StateRow {
	byType := StatesByType(states)

	rows := make([]StateRow, 0, len(columns.Columns))
	for _, col := range columns.Columns {
		remoteType, ok := ResolveRemoteType(col.Category, byType)
		if !ok {
			continue
		}
		rows = append(rows, StateRow{
			LocalStatus:     col.ID,
			RemoteStateID:   byType[remoteType],
			RemoteStateType: remoteType,
		})
	}
	return rows
}

// LocalStatusFor resolves the local column for a remote state. An explicit
// mapping row for the state id wins if its column still exists; then the
// first column whose category equals the remote type; then the first column
// whose fallback chain accepts the type; then the project default.
func LocalStatusFor(state model.WorkflowState, columns ColumnConfig, mappings []model.StateMapping) string {
	for _, m := range mappings {
		if m.RemoteStateID != state.ID {
			continue
		}
		if _, ok := columns.Column(m.LocalStatus); ok {
			return m.LocalStatus
		}
	}

	for _, col := range columns.Columns {
		if string(col.Category) == state.Type {
			return col.ID
		}
	}

	for _, col := range columns.Columns {
		if chainContains(col.Category, state.Type) {
			return col.ID
		}
	}

	return columns.Default()
}

// RemoteStateFor resolves the remote state id for a local status: the
// explicit row for the status, else the column category's fallback chain
// walked against the rows grouped by remote type. The second result is false
// when no state can be determined, in which case the state is not pushed.
func RemoteStateFor(status string, columns ColumnConfig, mappings []model.StateMapping) (string, bool) {
	byType := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if m.LocalStatus == status && m.RemoteStateID != "" {
			return m.RemoteStateID, true
		}
		if _, seen := byType[m.RemoteStateType]; !seen && m.RemoteStateID != "" {
			byType[m.RemoteStateType] = m.RemoteStateID
		}
	}

	col, ok := columns.Column(status)
	if !ok {
		return "", false
	}

	remoteType, ok := ResolveRemoteType(col.Category, byType)
	if !ok {
		return "", false
	}
	return byType[remoteType], true
}
