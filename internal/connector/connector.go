package connector

import "context"

// MessageKind distinguishes the content types a group message can carry.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindPhoto MessageKind = "photo"
	KindVoice MessageKind = "voice"
)

// Transport is the interface for chat platforms (Telegram, Slack, etc.).
// All failures are returned as errors, never swallowed.
type Transport interface {
	// Name returns the transport type (e.g., "telegram", "slack").
	Name() string
	// Start begins listening for inbound traffic. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the transport.
	Stop() error
	// SendMessage posts text to a group, optionally with an inline button menu.
	// Returns the platform message id for later edits or deletion.
	SendMessage(ctx context.Context, groupID, text string, markup *Markup) (string, error)
	// EditMessage replaces the text (and markup) of a previously sent message.
	EditMessage(ctx context.Context, groupID, messageID, text string, markup *Markup) error
	// DeleteMessage removes a previously sent message.
	DeleteMessage(ctx context.Context, groupID, messageID string) error
	// SetGroupPermissions grants or revokes the group's ability to send messages.
	SetGroupPermissions(ctx context.Context, groupID string, allowSend bool) error
	// DownloadVoice fetches a voice attachment to a local temp file.
	// The caller owns the file and removes it when done.
	DownloadVoice(ctx context.Context, fileRef string) (string, error)
}

// Markup is an inline button menu attached to a message.
type Markup struct {
	Rows [][]Button
}

// Button is a single inline button. Value is echoed back in the Action
// when the button is pressed.
type Button struct {
	Label string
	Value string
}

// Row is a convenience constructor for a single-button row.
func Row(label, value string) []Button {
	return []Button{{Label: label, Value: value}}
}

// Message is an inbound group message.
type Message struct {
	GroupID    string
	SenderID   string
	SenderName string
	Kind       MessageKind
	Content    string // text content, empty for photo/voice
	FileRef    string // platform file reference for voice attachments
}

// Action is an inbound button press.
type Action struct {
	GroupID    string
	SenderID   string
	SenderName string
	MessageID  string // message carrying the pressed button
	Value      string // Button.Value of the pressed button
}

// MessageHandler processes inbound group messages.
type MessageHandler func(ctx context.Context, msg Message) error

// ActionHandler processes inbound button presses.
type ActionHandler func(ctx context.Context, act Action) error
