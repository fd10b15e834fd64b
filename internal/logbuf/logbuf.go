// Package logbuf keeps the most recent log entries in memory so the REST
// API can serve them without touching disk.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Ring is a fixed-capacity buffer of log entries; when full, new entries
// overwrite the oldest. Safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewRing creates a ring holding up to capacity entries.
func NewRing(capacity int) *Ring {
	return &Ring{entries: make([]Entry, capacity)}
}

// Add stores an entry, evicting the oldest when the ring is full.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// Query returns entries at or above minLevel and not before since, oldest
// first. A zero since matches everything; limit <= 0 means no limit. When
// more than limit entries match, the newest ones win.
func (r *Ring) Query(since time.Time, minLevel slog.Level, limit int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	start := 0
	if r.full {
		count = len(r.entries)
		start = r.next
	}

	var out []Entry
	for i := 0; i < count; i++ {
		e := r.entries[(start+i)%len(r.entries)]
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if levelOf(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func levelOf(s string) slog.Level {
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
