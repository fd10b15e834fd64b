package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/deskbot-io/deskbot/internal/connector"
)

// Config holds Telegram transport configuration.
type Config struct {
	Token     string  // Bot token from @BotFather
	AllowFrom []int64 // Allowed Telegram user IDs (empty = allow all)
}

// Transport implements connector.Transport for Telegram via long polling.
type Transport struct {
	bot       *tgbotapi.BotAPI
	config    Config
	onMessage connector.MessageHandler
	onAction  connector.ActionHandler
	logger    *slog.Logger
	cancel    context.CancelFunc
}

// New creates a new Telegram transport.
func New(cfg Config, onMessage connector.MessageHandler, onAction connector.ActionHandler, logger *slog.Logger) (*Transport, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Transport{
		bot:       bot,
		config:    cfg,
		onMessage: onMessage,
		onAction:  onAction,
		logger:    logger,
	}, nil
}

func (t *Transport) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled.
func (t *Transport) Start(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := t.bot.GetUpdatesChan(u)

	t.logger.Info("telegram transport started", "bot", t.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			switch {
			case update.CallbackQuery != nil:
				t.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				t.handleMessage(ctx, update.Message)
			}

		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info("telegram transport stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the transport.
func (t *Transport) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// SendMessage posts a Markdown message, optionally with an inline keyboard.
func (t *Transport) SendMessage(_ context.Context, groupID, text string, markup *connector.Markup) (string, error) {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(chatID, MarkdownToTelegramHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = toInlineKeyboard(markup)
	}

	sent, err := t.bot.Send(msg)
	if err != nil {
		// Fallback to plain text if HTML parsing fails
		msg.Text = StripMarkdown(text)
		msg.ParseMode = ""
		sent, err = t.bot.Send(msg)
		if err != nil {
			return "", fmt.Errorf("telegram: send to %s: %w", groupID, err)
		}
	}
	return strconv.Itoa(sent.MessageID), nil
}

// EditMessage replaces a previously sent message's text and keyboard.
func (t *Transport) EditMessage(_ context.Context, groupID, messageID, text string, markup *connector.Markup) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram: invalid message_id %q: %w", messageID, err)
	}

	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, MarkdownToTelegramHTML(text), toInlineKeyboard(markup))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, msgID, MarkdownToTelegramHTML(text))
	}
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := t.bot.Send(edit); err != nil {
		return fmt.Errorf("telegram: edit %s/%s: %w", groupID, messageID, err)
	}
	return nil
}

// DeleteMessage removes a previously sent message.
func (t *Transport) DeleteMessage(_ context.Context, groupID, messageID string) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram: invalid message_id %q: %w", messageID, err)
	}

	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		return fmt.Errorf("telegram: delete %s/%s: %w", groupID, messageID, err)
	}
	return nil
}

// SetGroupPermissions toggles the whole group's ability to send messages.
func (t *Transport) SetGroupPermissions(_ context.Context, groupID string, allowSend bool) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}

	if _, err := t.bot.Request(permissionsConfig(chatID, allowSend)); err != nil {
		return fmt.Errorf("telegram: set permissions for %s: %w", groupID, err)
	}
	return nil
}

func permissionsConfig(chatID int64, allowSend bool) tgbotapi.SetChatPermissionsConfig {
	return tgbotapi.SetChatPermissionsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       allowSend,
			CanSendMediaMessages:  allowSend,
			CanSendOtherMessages:  allowSend,
			CanAddWebPagePreviews: allowSend,
		},
	}
}

func (t *Transport) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if len(t.config.AllowFrom) > 0 && !allowed(t.config.AllowFrom, msg.From.ID) {
		t.logger.Warn("unauthorized user", "user_id", msg.From.ID, "username", msg.From.UserName)
		return
	}

	inbound := connector.Message{
		GroupID:    strconv.FormatInt(msg.Chat.ID, 10),
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: senderName(msg.From),
	}

	switch {
	case msg.Voice != nil:
		inbound.Kind = connector.KindVoice
		inbound.FileRef = msg.Voice.FileID
	case len(msg.Photo) > 0:
		inbound.Kind = connector.KindPhoto
		inbound.Content = msg.Caption
	case msg.Text != "":
		inbound.Kind = connector.KindText
		inbound.Content = msg.Text
	default:
		return
	}

	if err := t.onMessage(ctx, inbound); err != nil {
		t.logger.Error("inbound handler error", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (t *Transport) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Ack immediately so the button stops spinning
	if _, err := t.bot.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		t.logger.Warn("callback ack failed", "error", err)
	}

	if q.Message == nil || q.From == nil {
		return
	}

	act := connector.Action{
		GroupID:    strconv.FormatInt(q.Message.Chat.ID, 10),
		SenderID:   strconv.FormatInt(q.From.ID, 10),
		SenderName: senderName(q.From),
		MessageID:  strconv.Itoa(q.Message.MessageID),
		Value:      q.Data,
	}

	if err := t.onAction(ctx, act); err != nil {
		t.logger.Error("action handler error", "chat_id", act.GroupID, "action", act.Value, "error", err)
	}
}

func toInlineKeyboard(m *connector.Markup) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Rows))
	for _, row := range m.Rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Value))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parseChatID(groupID string) (int64, error) {
	chatID, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid group id %q: %w", groupID, err)
	}
	return chatID, nil
}

func senderName(u *tgbotapi.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.UserName
}

func allowed(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
