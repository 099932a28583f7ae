package watch

// ComputeStale returns the paths in previous that are not in current
// (set difference: previous - current), in previous order.
//
// Returns an empty slice when previous is nil or empty (first arm).
func ComputeStale(previous, current []string) []string {
	if len(previous) == 0 {
		return []string{}
	}

	keep := make(map[string]struct{}, len(current))
	for _, p := range current {
		keep[p] = struct{}{}
	}

	stale := []string{}
	seen := make(map[string]struct{}, len(previous))
	for _, p := range previous {
		if _, ok := keep[p]; ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		stale = append(stale, p)
	}
	return stale
}

func samePaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
