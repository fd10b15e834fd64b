package logbuf

import (
	"context"
	"log/slog"
)

// Handler tees slog records into a Ring and forwards them to an inner
// handler. The ring captures every level; the inner handler keeps its own
// level filter.
type Handler struct {
	inner  slog.Handler
	ring   *Ring
	attrs  []slog.Attr
	groups []string
}

// NewHandler wraps inner so every record is also captured in ring.
func NewHandler(inner slog.Handler, ring *Ring) *Handler {
	return &Handler{inner: inner, ring: ring}
}

func (h *Handler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	var attrs map[string]any
	add := func(a slog.Attr) {
		key := a.Key
		for _, g := range h.groups {
			key = g + "." + key
		}
		if attrs == nil {
			attrs = make(map[string]any)
		}
		attrs[key] = flatten(a.Value)
	}
	for _, a := range h.attrs {
		add(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		add(a)
		return true
	})

	h.ring.Add(Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
		Attrs:   attrs,
	})

	if h.inner.Enabled(ctx, rec.Level) {
		return h.inner.Handle(ctx, rec)
	}
	return nil
}

// flatten makes slog values JSON-safe; errors would otherwise marshal
// to an empty object.
func flatten(v slog.Value) any {
	raw := v.Resolve().Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		inner:  h.inner.WithAttrs(attrs),
		ring:   h.ring,
		attrs:  append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		groups: h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:  h.inner.WithGroup(name),
		ring:   h.ring,
		attrs:  h.attrs,
		groups: append(h.groups[:len(h.groups):len(h.groups)], name),
	}
}
