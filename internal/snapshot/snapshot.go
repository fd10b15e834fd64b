// Package snapshot persists the in-memory state as a single JSON blob,
// written behind the mutation path so handlers never wait on disk.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Source produces the blob to persist. Called from the writer goroutine,
// so implementations must be safe to call concurrently with mutations.
type Source interface {
	Snapshot() ([]byte, error)
}

// Snapshotter coalesces write requests: any number of Request calls while
// a write is pending collapse into one write, so at most one write is in
// flight and the on-disk state lags memory by at most one mutation.
type Snapshotter struct {
	path   string
	source Source
	logger *slog.Logger
	wake   chan struct{}
}

// New creates a Snapshotter that writes to path.
func New(path string, source Source, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{
		path:   path,
		source: source,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Request schedules a snapshot write. Never blocks; requests arriving
// while one is already queued are absorbed.
func (s *Snapshotter) Request() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run services write requests until the context is cancelled, then flushes
// one final snapshot.
func (s *Snapshotter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := s.write(); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return
		case <-s.wake:
			if err := s.write(); err != nil {
				s.logger.Error("snapshot write failed", "error", err)
			}
		}
	}
}

// write serializes the source and replaces the snapshot file atomically.
func (s *Snapshotter) write() error {
	blob, err := s.source.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: serialize: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	s.logger.Debug("snapshot written", "path", s.path, "bytes", len(blob))
	return nil
}

// Load reads the snapshot file. A missing file is a cold start and
// returns (nil, nil).
func Load(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}
	return blob, nil
}
