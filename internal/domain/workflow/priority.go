package workflow

// Local priorities run 1 (highest) to 5 (lowest). Remote priorities run
// 0 (none), 1 (urgent) .. 4 (low). The tables below are deliberately lossy at
// the edges and are not inverses of each other.

// DefaultLocalPriority is used for remote issues with no priority.
const DefaultLocalPriority = 3

// PriorityToLocal maps a remote priority to the local scale.
func PriorityToLocal(remote int) int {
	switch {
	case remote == 0:
		return DefaultLocalPriority
	case remote <= 1:
		return 5
	case remote == 2:
		return 4
	case remote == 3:
		return 3
	case remote == 4:
		return 2
	default:
		return 1
	}
}

// PriorityToRemote maps a local priority to the remote scale.
func PriorityToRemote(local int) int {
	switch {
	case local <= 2:
		return 4
	case local == 3:
		return 3
	case local == 4:
		return 2
	default:
		return 1
	}
}
