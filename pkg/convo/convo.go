// Package convo holds the short conversational memory of the pendant:
// the most recent user/assistant exchanges fed back into the reasoning
// backend on each turn.
package convo

// Roles of history entries.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Role identifies the author of a history entry.
type Role string

// Entry is one utterance in the conversation.
type Entry struct {
	Role    Role
	Content string
}

// DefaultLimit is the number of entries kept by default.
const DefaultLimit = 10

// History is a bounded, ordered sequence of conversation entries. The oldest
// entries are evicted first once the limit is reached.
//
// History is owned by the turn engine and mutated only on the foreground
// goroutine; it is not safe for concurrent use.
type History struct {
	limit   int
	entries []Entry
}

// New creates a History bounded to limit entries. A non-positive limit uses
// DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Add appends an entry, evicting the oldest entries beyond the limit.
func (h *History) Add(role Role, content string) {
	h.entries = append(h.entries, Entry{Role: role, Content: content})
	if n := len(h.entries); n > h.limit {
		h.entries = h.entries[n-h.limit:]
	}
}

// Entries returns the history in chronological order. The returned slice is
// a copy.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries currently held.
func (h *History) Len() int {
	return len(h.entries)
}

// RetractLastUser removes the most recent entry if it is a user utterance.
// Tool-calling turns retract the user entry that triggered the call so the
// history never carries an exchange the backend cannot replay.
func (h *History) RetractLastUser() {
	if n := len(h.entries); n > 0 && h.entries[n-1].Role == RoleUser {
		h.entries = h.entries[:n-1]
	}
}

// Reset discards all entries.
func (h *History) Reset() {
	h.entries = nil
}
