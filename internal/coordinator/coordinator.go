// Package coordinator is the hub that ties the transports, session
// registry, ticket store, directory cache and summarization pipeline
// together. All handlers run on one event loop, so state transitions
// never interleave mid-handler.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deskbot-io/deskbot/internal/connector"
	"github.com/deskbot-io/deskbot/internal/directory"
	"github.com/deskbot-io/deskbot/internal/scheduler"
	"github.com/deskbot-io/deskbot/internal/session"
	"github.com/deskbot-io/deskbot/internal/summarizer"
	"github.com/deskbot-io/deskbot/internal/ticket"
	"github.com/deskbot-io/deskbot/internal/transcribe"
)

// SessionSummarizer runs the close-out pipeline.
type SessionSummarizer interface {
	Summarize(ctx context.Context, req summarizer.Request) summarizer.Result
}

// SnapshotRequester schedules a write-behind state snapshot.
type SnapshotRequester interface {
	Request()
}

// Settings carries the coordinator's behavioral knobs.
type Settings struct {
	AdminID     string
	OnCallName  string
	OnCallPhone string
	Inactivity  time.Duration
	Hours       scheduler.Hours
}

// Coordinator owns the event loop. Transports and the scheduler post
// events with Dispatch; Run consumes them one at a time.
type Coordinator struct {
	transport connector.Transport
	registry  *session.Registry
	store     ticket.Store
	dir       *directory.Cache
	summ      SessionSummarizer
	stt       transcribe.Transcriber // nil disables voice handling
	snap      SnapshotRequester
	settings  Settings
	logger    *slog.Logger

	events chan event
	now    func() time.Time
}

type event any

type messageEvent struct{ msg connector.Message }
type actionEvent struct{ act connector.Action }
type openAllEvent struct{}
type closeAllEvent struct{}
type sweepEvent struct{}
type refreshEvent struct{}

// New creates a Coordinator.
func New(
	transport connector.Transport,
	registry *session.Registry,
	store ticket.Store,
	dir *directory.Cache,
	summ SessionSummarizer,
	stt transcribe.Transcriber,
	snap SnapshotRequester,
	settings Settings,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if snap == nil {
		snap = noopSnap{}
	}
	return &Coordinator{
		transport: transport,
		registry:  registry,
		store:     store,
		dir:       dir,
		summ:      summ,
		stt:       stt,
		snap:      snap,
		settings:  settings,
		logger:    logger,
		events:    make(chan event, 64),
		now:       time.Now,
	}
}

type noopSnap struct{}

func (noopSnap) Request() {}

// SetSnapshotter wires the write-behind snapshotter. The snapshotter needs
// the coordinator as its source, so it is attached after construction;
// call before Run.
func (c *Coordinator) SetSnapshotter(s SnapshotRequester) {
	c.snap = s
}

// Run consumes events until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("coordinator started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return
		case ev := <-c.events:
			c.process(ctx, ev)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case messageEvent:
		c.handleMessage(ctx, e.msg)
	case actionEvent:
		c.handleAction(ctx, e.act)
	case openAllEvent:
		c.openAll(ctx)
	case closeAllEvent:
		c.closeAll(ctx)
	case sweepEvent:
		c.sweep(ctx)
	case refreshEvent:
		c.refreshDirectory(ctx)
	default:
		c.logger.Warn("unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (c *Coordinator) dispatch(ev event) {
	c.events <- ev
}

// HandleMessage is the connector.MessageHandler entry point.
func (c *Coordinator) HandleMessage(ctx context.Context, msg connector.Message) error {
	c.dispatch(messageEvent{msg})
	return nil
}

// HandleAction is the connector.ActionHandler entry point.
func (c *Coordinator) HandleAction(ctx context.Context, act connector.Action) error {
	c.dispatch(actionEvent{act})
	return nil
}

// OpenAll asks the loop to open every known group (scheduled start of day).
func (c *Coordinator) OpenAll() { c.dispatch(openAllEvent{}) }

// CloseAll asks the loop to close every known group (scheduled end of day).
func (c *Coordinator) CloseAll() { c.dispatch(closeAllEvent{}) }

// Sweep asks the loop to close groups idle past the inactivity threshold.
func (c *Coordinator) Sweep() { c.dispatch(sweepEvent{}) }

// RefreshDirectory asks the loop to rebuild the client directory cache.
func (c *Coordinator) RefreshDirectory() { c.dispatch(refreshEvent{}) }

func (c *Coordinator) openAll(ctx context.Context) {
	for _, groupID := range c.dir.Groups() {
		if err := c.openGroup(ctx, groupID); err != nil {
			c.logger.Error("scheduled open failed", "group", groupID, "error", err)
			continue
		}
		c.postMenu(ctx, groupID, "🔓 Bom dia! Atendimento aberto.")
	}
	c.snap.Request()
}

func (c *Coordinator) closeAll(ctx context.Context) {
	failures := 0
	for _, groupID := range c.dir.Groups() {
		if err := c.closeGroup(ctx, groupID); err != nil {
			failures++
			c.logger.Error("scheduled close failed", "group", groupID, "error", err)
			continue
		}
		c.postMenu(ctx, groupID, "🔒 Menu Automático")
	}
	if failures > 0 {
		c.logger.Warn("scheduled close finished with failures", "failures", failures)
	}
	c.snap.Request()
}

// sweep closes every open group whose last activity is older than the
// inactivity threshold. Per-group failures do not stop the sweep.
func (c *Coordinator) sweep(ctx context.Context) {
	cutoff := c.now().Add(-c.settings.Inactivity)
	idle := c.registry.OpenSince(cutoff)
	if len(idle) == 0 {
		return
	}
	failures := 0
	for _, groupID := range idle {
		if err := c.closeGroup(ctx, groupID); err != nil {
			failures++
			c.logger.Error("inactivity close failed", "group", groupID, "error", err)
			continue
		}
		c.postMenu(ctx, groupID, "🔒 Fechado por Inatividade")
	}
	c.logger.Info("inactivity sweep done", "closed", len(idle)-failures, "failures", failures)
	c.snap.Request()
}

func (c *Coordinator) refreshDirectory(ctx context.Context) {
	if err := c.dir.Refresh(ctx); err != nil {
		c.logger.Error("directory refresh failed", "error", err)
		return
	}
	c.snap.Request()
}

// Broadcast sends text to every known group and returns the sent/failed
// counts. Safe to call off the loop: it only touches the directory cache
// and the transport.
func (c *Coordinator) Broadcast(ctx context.Context, text string) (sent, failed int) {
	body := "📢 COMUNICADO\n━━━━━━━━\n\n" + text
	for _, groupID := range c.dir.Groups() {
		if _, err := c.transport.SendMessage(ctx, groupID, body, nil); err != nil {
			failed++
			c.logger.Warn("broadcast send failed", "group", groupID, "error", err)
			continue
		}
		sent++
	}
	return sent, failed
}

// Sessions exposes the persisted session view for the API.
func (c *Coordinator) Sessions() map[string]session.PersistedSession {
	return c.registry.Export().Sessions
}

// Clients exposes the directory cache contents for the API.
func (c *Coordinator) Clients() map[string]string {
	return c.dir.Export()
}

// snapshotState is the single durable blob: directory, sessions (minus
// logs), tracker entries and first-session flags.
type snapshotState struct {
	Clients  map[string]string `json:"clients"`
	Sessions session.State     `json:"sessions"`
}

// Snapshot implements snapshot.Source.
func (c *Coordinator) Snapshot() ([]byte, error) {
	st := snapshotState{
		Clients:  c.dir.Export(),
		Sessions: c.registry.Export(),
	}
	blob, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("coordinator: marshal state: %w", err)
	}
	return blob, nil
}

// RestoreSnapshot loads a previously written state blob. A nil blob is a
// cold start and leaves the empty state in place.
func (c *Coordinator) RestoreSnapshot(blob []byte) error {
	if blob == nil {
		return nil
	}
	var st snapshotState
	if err := json.Unmarshal(blob, &st); err != nil {
		return fmt.Errorf("coordinator: unmarshal state: %w", err)
	}
	c.dir.Restore(st.Clients)
	c.registry.Restore(st.Sessions)
	c.logger.Info("state restored", "clients", len(st.Clients), "sessions", len(st.Sessions.Sessions))
	return nil
}
