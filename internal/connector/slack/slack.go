package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/deskbot-io/deskbot/internal/connector"
)

// Config holds Slack transport configuration.
type Config struct {
	BotToken string // xoxb-... Bot User OAuth Token
	AppToken string // xapp-... App-Level Token (for Socket Mode)
}

// Transport implements connector.Transport for Slack via Socket Mode.
//
// Slack has no group-wide send-permission API, so SetGroupPermissions posts
// a lock/unlock notice and flips an inbound gate: messages arriving in a
// locked channel are dropped before they reach the handler.
type Transport struct {
	api       *slack.Client
	socket    *socketmode.Client
	config    Config
	onMessage connector.MessageHandler
	onAction  connector.ActionHandler
	logger    *slog.Logger
	cancel    context.CancelFunc
	botID     string

	mu     sync.Mutex
	locked map[string]bool
	names  map[string]string // user id → display name cache
}

// New creates a new Slack transport.
func New(cfg Config, onMessage connector.MessageHandler, onAction connector.ActionHandler, logger *slog.Logger) (*Transport, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}

	if logger == nil {
		logger = slog.Default()
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	return &Transport{
		api:       api,
		socket:    socketmode.New(api),
		config:    cfg,
		onMessage: onMessage,
		onAction:  onAction,
		logger:    logger,
		botID:     authResp.UserID,
		locked:    make(map[string]bool),
		names:     make(map[string]string),
	}, nil
}

func (t *Transport) Name() string { return "slack" }

// Start begins listening for events via Socket Mode. Blocks until context is cancelled.
func (t *Transport) Start(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)

	go t.handleEvents(ctx)

	t.logger.Info("slack transport started (socket mode)")
	return t.socket.RunContext(ctx)
}

// Stop gracefully shuts down the transport.
func (t *Transport) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// SendMessage posts a message to a channel, optionally with button blocks.
// The returned id is the Slack message timestamp.
func (t *Transport) SendMessage(_ context.Context, groupID, text string, markup *connector.Markup) (string, error) {
	opts := buildOptions(text, markup)
	_, ts, err := t.api.PostMessage(groupID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack: send to %s: %w", groupID, err)
	}
	return ts, nil
}

// EditMessage updates a previously posted message in place.
func (t *Transport) EditMessage(_ context.Context, groupID, messageID, text string, markup *connector.Markup) error {
	opts := buildOptions(text, markup)
	if _, _, _, err := t.api.UpdateMessage(groupID, messageID, opts...); err != nil {
		return fmt.Errorf("slack: edit %s/%s: %w", groupID, messageID, err)
	}
	return nil
}

// DeleteMessage removes a previously posted message.
func (t *Transport) DeleteMessage(_ context.Context, groupID, messageID string) error {
	if _, _, err := t.api.DeleteMessage(groupID, messageID); err != nil {
		return fmt.Errorf("slack: delete %s/%s: %w", groupID, messageID, err)
	}
	return nil
}

// SetGroupPermissions flips the inbound gate and announces the change.
func (t *Transport) SetGroupPermissions(_ context.Context, groupID string, allowSend bool) error {
	t.mu.Lock()
	t.locked[groupID] = !allowSend
	t.mu.Unlock()

	notice := "🔓 Canal liberado para mensagens."
	if !allowSend {
		notice = "🔒 Canal bloqueado para mensagens."
	}
	if _, _, err := t.api.PostMessage(groupID, slack.MsgOptionText(notice, false)); err != nil {
		return fmt.Errorf("slack: set permissions for %s: %w", groupID, err)
	}
	return nil
}

// DownloadVoice is not supported on Slack; audio clips arrive as files
// without a stable transcription path through this transport.
func (t *Transport) DownloadVoice(_ context.Context, fileRef string) (string, error) {
	return "", fmt.Errorf("slack: voice download not supported (file %q)", fileRef)
}

func (t *Transport) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-t.socket.Events:
			switch event.Type {
			case socketmode.EventTypeEventsAPI:
				t.handleEventsAPI(ctx, event)
			case socketmode.EventTypeInteractive:
				t.handleInteractive(ctx, event)
			}
		}
	}
}

func (t *Transport) handleEventsAPI(ctx context.Context, event socketmode.Event) {
	apiEvent, ok := event.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	t.socket.Ack(*event.Request)

	ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	t.handleMessage(ctx, ev)
}

func (t *Transport) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore bot messages (including our own) and message subtypes
	// other than file shares (edits, joins, deletes).
	if ev.BotID != "" || ev.User == "" || ev.User == t.botID {
		return
	}
	if ev.SubType != "" && ev.SubType != "file_share" {
		return
	}

	t.mu.Lock()
	dropped := t.locked[ev.Channel]
	t.mu.Unlock()
	if dropped {
		t.logger.Debug("dropping message in locked channel", "channel", ev.Channel)
		return
	}

	inbound := connector.Message{
		GroupID:    ev.Channel,
		SenderID:   ev.User,
		SenderName: t.displayName(ev.User),
	}
	if ev.SubType == "file_share" {
		inbound.Kind = connector.KindPhoto
		inbound.Content = ev.Text
	} else {
		if ev.Text == "" {
			return
		}
		inbound.Kind = connector.KindText
		inbound.Content = ev.Text
	}

	if err := t.onMessage(ctx, inbound); err != nil {
		t.logger.Error("slack inbound handler error", "channel", ev.Channel, "user", ev.User, "error", err)
	}
}

func (t *Transport) handleInteractive(ctx context.Context, event socketmode.Event) {
	callback, ok := event.Data.(slack.InteractionCallback)
	if !ok {
		return
	}
	t.socket.Ack(*event.Request)

	if len(callback.ActionCallback.BlockActions) == 0 {
		return
	}
	action := callback.ActionCallback.BlockActions[0]

	act := connector.Action{
		GroupID:    callback.Channel.ID,
		SenderID:   callback.User.ID,
		SenderName: t.displayName(callback.User.ID),
		MessageID:  callback.Message.Timestamp,
		Value:      action.Value,
	}

	if err := t.onAction(ctx, act); err != nil {
		t.logger.Error("slack action handler error", "channel", act.GroupID, "action", act.Value, "error", err)
	}
}

func (t *Transport) displayName(userID string) string {
	t.mu.Lock()
	name, ok := t.names[userID]
	t.mu.Unlock()
	if ok {
		return name
	}

	user, err := t.api.GetUserInfo(userID)
	if err != nil {
		return userID
	}
	name = user.RealName
	if name == "" {
		name = user.Name
	}

	t.mu.Lock()
	t.names[userID] = name
	t.mu.Unlock()
	return name
}

func buildOptions(text string, markup *connector.Markup) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if markup == nil {
		return opts
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
	}
	for i, row := range markup.Rows {
		elements := make([]slack.BlockElement, 0, len(row))
		for _, b := range row {
			elements = append(elements, slack.NewButtonBlockElement(
				b.Value,
				b.Value,
				slack.NewTextBlockObject(slack.PlainTextType, b.Label, true, false),
			))
		}
		blocks = append(blocks, slack.NewActionBlock(fmt.Sprintf("row_%d", i), elements...))
	}
	return append(opts, slack.MsgOptionBlocks(blocks...))
}
