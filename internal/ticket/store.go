package ticket

import (
	"context"

	"github.com/deskbot-io/deskbot/pkg/protocol"
)

// Store is the contract against the external ticket tracking store.
// Implementations must never swallow failures; callers decide whether a
// failure is fatal or reported inline.
type Store interface {
	// Create opens a new ticket and returns its timestamp-derived id.
	Create(ctx context.Context, requester, description, client string) (string, error)
	// Description returns a ticket's current description.
	Description(ctx context.Context, id string) (string, error)
	// UpdateFields applies the non-nil fields to a ticket in one call.
	UpdateFields(ctx context.Context, id string, fields Fields) error
	// AppendComment adds a comment. Highlighted comments are rendered as
	// distinguished summary blocks in the ticket history.
	AppendComment(ctx context.Context, id, author, text string, highlighted bool) error
	// ListOpen returns the in-progress tickets for a client.
	ListOpen(ctx context.Context, client string) ([]protocol.TicketRef, error)
	// History returns the ticket's comment history as ordered formatted blocks.
	History(ctx context.Context, id string) ([]string, error)
}

// Fields is a partial ticket update; nil members are left untouched.
type Fields struct {
	Description *string
	Status      *protocol.TicketStatus
}

// shortDescLen bounds the description preview in listing entries.
const shortDescLen = 25

func shorten(s string) string {
	runes := []rune(s)
	if len(runes) <= shortDescLen {
		return s
	}
	return string(runes[:shortDescLen]) + "..."
}
