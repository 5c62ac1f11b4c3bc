package mail

import (
	"regexp"
	"strings"
	"sync"
)

// Summary is one line of a message listing.
type Summary struct {
	ID        string
	FromName  string
	FromEmail string
	Subject   string
	Date      string
}

// Rolodex holds the summaries captured by the most recent List. The
// model refers to messages by their spoken ordinal ("2番目のメール"),
// which only means something relative to that listing, so every List
// replaces the whole set.
type Rolodex struct {
	mu      sync.Mutex
	entries []Summary
}

// Replace installs a new listing, discarding the previous one.
func (r *Rolodex) Replace(entries []Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]Summary(nil), entries...)
}

// At resolves a 1-based ordinal from the last listing.
func (r *Rolodex) At(ordinal int) (Summary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ordinal < 1 || ordinal > len(r.entries) {
		return Summary{}, false
	}
	return r.entries[ordinal-1], true
}

// First returns the most recent sender's entry, if any. Used as the
// default recipient when the user says "send a photo" with no address.
func (r *Rolodex) First() (Summary, bool) {
	return r.At(1)
}

// Len reports how many entries the last listing captured.
func (r *Rolodex) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var (
	displayNameRe = regexp.MustCompile(`^(.+?)\s*<`)
	addrRe        = regexp.MustCompile(`<([^>]+)>`)
)

// DisplayName extracts the human name from a From header value. A bare
// address falls back to its local part.
func DisplayName(from string) string {
	if m := displayNameRe.FindStringSubmatch(from); m != nil {
		return strings.TrimSpace(m[1])
	}
	if i := strings.Index(from, "@"); i > 0 {
		return from[:i]
	}
	return from
}

// ExtractAddress pulls the bare address out of a From or Reply-To
// header value. Returns "" when no address is present.
func ExtractAddress(header string) string {
	if header == "" {
		return ""
	}
	if m := addrRe.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	if strings.Contains(header, "@") {
		return strings.TrimSpace(header)
	}
	return ""
}
