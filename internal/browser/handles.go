package browser

// MergeHandles orders window handles for engines whose protocol does not
// report them in creation order: handles already known keep their position,
// new ones are appended in the order reported, and vanished ones are dropped.
func MergeHandles(known, live []string) []string {
	alive := make(map[string]bool, len(live))
	for _, h := range live {
		alive[h] = true
	}
	out := make([]string, 0, len(live))
	seen := make(map[string]bool, len(live))
	for _, h := range known {
		if alive[h] && !seen[h] {
			out = append(out, h)
			seen[h] = true
		}
	}
	for _, h := range live {
		if !seen[h] {
			out = append(out, h)
			seen[h] = true
		}
	}
	return out
}

// RemoveHandle returns handles without h.
func RemoveHandle(handles []string, h string) []string {
	out := make([]string, 0, len(handles))
	for _, existing := range handles {
		if existing != h {
			out = append(out, existing)
		}
	}
	return out
}

// ContainsHandle reports whether h is in handles.
func ContainsHandle(handles []string, h string) bool {
	for _, existing := range handles {
		if existing == h {
			return true
		}
	}
	return false
}
