package terminal

// History is a capped command history with an arrow-key style cursor.
// Adjacent duplicates are collapsed.
type History struct {
	entries []string
	max     int
	cursor  int
}

// NewHistory creates a history keeping at most max entries (0 = unlimited).
func NewHistory(max int) *History {
	return &History{max: max}
}

// Add appends cmd unless it equals the most recent entry, evicting the
// oldest entries past the cap. The cursor moves past the end.
func (h *History) Add(cmd string) {
	if n := len(h.entries); n == 0 || h.entries[n-1] != cmd {
		h.entries = append(h.entries, cmd)
		if h.max > 0 && len(h.entries) > h.max {
			h.entries = append(h.entries[:0:0], h.entries[len(h.entries)-h.max:]...)
		}
	}
	h.cursor = len(h.entries)
}

// Prev moves the cursor back and returns that entry.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next moves the cursor forward. Stepping past the newest entry returns an
// empty input line.
func (h *History) Next() (string, bool) {
	switch {
	case len(h.entries) == 0:
		return "", false
	case h.cursor < len(h.entries)-1:
		h.cursor++
		return h.entries[h.cursor], true
	case h.cursor == len(h.entries)-1:
		h.cursor++
		return "", true
	default:
		return "", false
	}
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.entries = nil
	h.cursor = 0
}
