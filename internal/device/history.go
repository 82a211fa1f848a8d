package device

// HistoryLimit is the number of recent devices remembered per direction
const HistoryLimit = 2

// History holds the most recently active device ids of one direction,
// most recent first.
type History struct {
	ids []string
}

// Push moves id to the front, dropping duplicates and anything past the limit
func (h *History) Push(id string) {
	if id == "" {
		return
	}
	next := make([]string, 0, HistoryLimit)
	next = append(next, id)
	for _, existing := range h.ids {
		if existing == id {
			continue
		}
		if len(next) == HistoryLimit {
			break
		}
		next = append(next, existing)
	}
	h.ids = next
}

// Entries returns a copy of the history
func (h *History) Entries() []string {
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}

// Len returns the number of remembered ids
func (h *History) Len() int {
	return len(h.ids)
}

// Other returns the entry to toggle to given the currently active id.
// It needs two entries; if current is the head the second one is returned.
func (h *History) Other(current string) (string, bool) {
	if len(h.ids) < HistoryLimit {
		return "", false
	}
	if current == h.ids[0] {
		return h.ids[1], true
	}
	return h.ids[0], true
}
