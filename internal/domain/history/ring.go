// Package history keeps a bounded recency buffer of each user's recent
// inputs so replies can reference prior context.
package history

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// NoHistory is the sentinel rendered when a user has no stored entries.
const NoHistory = "No hay contexto previo."

// DefaultCapacity is the per-user entry cap.
const DefaultCapacity = 5

// DefaultTextLimit is the per-entry character cap; longer texts are truncated
// before storage.
const DefaultTextLimit = 500

// Entry is one remembered input: a kind tag ("texto", "foto", "documento")
// plus the truncated text.
type Entry struct {
	Kind string
	Text string
}

// Ring is a fixed-capacity FIFO of recent entries per user. Appends evict the
// oldest entry on overflow. Each user's buffer has its own lock so concurrent
// users never contend.
type Ring struct {
	capacity  int
	textLimit int
	users     sync.Map // map[tutor.UserID]*userHistory
}

type userHistory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRing creates a ring with the given per-user capacity and per-entry text
// limit. Non-positive arguments fall back to the defaults.
func NewRing(capacity, textLimit int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if textLimit <= 0 {
		textLimit = DefaultTextLimit
	}
	return &Ring{capacity: capacity, textLimit: textLimit}
}

// Append records (kind, text) for the user, truncating text to the ring's
// limit and evicting the oldest entry when the buffer is full.
func (r *Ring) Append(user tutor.UserID, kind, text string) {
	if runes := []rune(text); len(runes) > r.textLimit {
		text = string(runes[:r.textLimit])
	}

	uh := r.forUser(user)
	uh.mu.Lock()
	defer uh.mu.Unlock()

	uh.entries = append(uh.entries, Entry{Kind: kind, Text: text})
	if len(uh.entries) > r.capacity {
		// Shift instead of reslicing so the backing array does not pin
		// evicted texts.
		copy(uh.entries, uh.entries[1:])
		uh.entries = uh.entries[:r.capacity]
	}
}

// Entries returns a copy of the user's entries, oldest first.
func (r *Ring) Entries(user tutor.UserID) []Entry {
	val, ok := r.users.Load(user)
	if !ok {
		return nil
	}
	uh := val.(*userHistory)
	uh.mu.Lock()
	defer uh.mu.Unlock()
	out := make([]Entry, len(uh.entries))
	copy(out, uh.entries)
	return out
}

// Render produces the numbered oldest-first listing of the user's history,
// or the NoHistory sentinel when empty.
func (r *Ring) Render(user tutor.UserID) string {
	entries := r.Entries(user)
	if len(entries) == 0 {
		return NoHistory
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. (%s) %s", i+1, e.Kind, e.Text)
	}
	return b.String()
}

// Forget drops the user's history entirely.
func (r *Ring) Forget(user tutor.UserID) {
	r.users.Delete(user)
}

func (r *Ring) forUser(user tutor.UserID) *userHistory {
	if val, ok := r.users.Load(user); ok {
		return val.(*userHistory)
	}
	actual, _ := r.users.LoadOrStore(user, &userHistory{})
	return actual.(*userHistory)
}
