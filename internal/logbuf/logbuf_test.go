package logbuf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func entry(msg string, level slog.Level, at time.Time) Entry {
	return Entry{Time: at, Level: level.String(), Message: msg}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		r.Add(entry(fmt.Sprintf("m%d", i), slog.LevelInfo, base.Add(time.Duration(i)*time.Second)))
	}

	got := r.Query(time.Time{}, slog.LevelDebug, 0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "m2" || got[2].Message != "m4" {
		t.Errorf("entries = %v", got)
	}
}

func TestRingQueryFilters(t *testing.T) {
	r := NewRing(10)
	base := time.Now()
	r.Add(entry("old debug", slog.LevelDebug, base))
	r.Add(entry("warn", slog.LevelWarn, base.Add(time.Minute)))
	r.Add(entry("error", slog.LevelError, base.Add(2*time.Minute)))

	got := r.Query(base.Add(30*time.Second), slog.LevelWarn, 0)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(got), got)
	}
	if got[0].Message != "warn" {
		t.Errorf("first = %q", got[0].Message)
	}

	got = r.Query(time.Time{}, slog.LevelDebug, 1)
	if len(got) != 1 || got[0].Message != "error" {
		t.Errorf("limit should keep newest: %v", got)
	}
}

func TestHandlerCapturesAttrs(t *testing.T) {
	ring := NewRing(10)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(NewHandler(inner, ring))

	logger.Info("group opened", "group", "g1")
	logger.With("component", "sweep").Warn("close failed", "error", fmt.Errorf("boom"))

	got := ring.Query(time.Time{}, slog.LevelDebug, 0)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Attrs["group"] != "g1" {
		t.Errorf("attrs = %v", got[0].Attrs)
	}
	if got[1].Attrs["component"] != "sweep" {
		t.Errorf("pre-bound attr missing: %v", got[1].Attrs)
	}
	if got[1].Attrs["error"] != "boom" {
		t.Errorf("error attr not flattened: %v", got[1].Attrs)
	}
}

func TestHandlerCapturesBelowInnerLevel(t *testing.T) {
	ring := NewRing(10)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	h := NewHandler(inner, ring)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("handler must accept all levels for the ring")
	}
	slog.New(h).Debug("quiet")
	if got := ring.Query(time.Time{}, slog.LevelDebug, 0); len(got) != 1 {
		t.Errorf("debug entry not captured: %v", got)
	}
}
