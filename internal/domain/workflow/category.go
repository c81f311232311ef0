package workflow

import "github.com/ericfisherdev/trackersync/internal/domain/model"

// fallbackChains lists, per local category, the remote state types to try in
// order. The first type the remote team actually has wins.
var fallbackChains = map[model.Category][]model.Category{
	model.CategoryTriage:    {model.CategoryTriage, model.CategoryUnstarted, model.CategoryBacklog},
	model.CategoryBacklog:   {model.CategoryBacklog, model.CategoryUnstarted, model.CategoryTriage},
	model.CategoryUnstarted: {model.CategoryUnstarted, model.CategoryTriage, model.CategoryBacklog},
	model.CategoryStarted:   {model.CategoryStarted},
	model.CategoryCompleted: {model.CategoryCompleted, model.CategoryCanceled},
	model.CategoryCanceled:  {model.CategoryCanceled, model.CategoryCompleted},
}

// FallbackChain returns the ordered remote types acceptable for a local
// category. Unknown categories have no chain.
func FallbackChain(c model.Category) []model.Category {
	chain := fallbackChains[c]
	out := make([]model.Category, len(chain))
	copy(out, chain)
	return out
}

// ResolveRemoteType walks the chain for c and returns the first type present
// in available. The second result is false when nothing in the chain matches.
func ResolveRemoteType(c model.Category, available map[string]string) (string, bool) {
	for _, t := range fallbackChains[c] {
		if _, ok := available[string(t)]; ok {
			return string(t), true
		}
	}
	return "", false
}

// chainContains reports whether the chain for c accepts remote type t.
func chainContains(c model.Category, t string) bool {
	for _, candidate := range fallbackChains[c] {
		if string(candidate) == t {
			return true
		}
	}
	return false
}

// StatesByType maps each remote state type to the first state id seen with
// that type, preserving the remote's ordering.
func StatesByType(states []model.WorkflowState) map[string]string {
	byType := make(map[string]string, len(states))
	for _, s := range states {
		if s.Type == "" || s.ID == "" {
			continue
		}
		if _, seen := byType[s.Type]; !seen {
			byType[s.Type] = s.ID
		}
	}
	return byType
}
