package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskbot-io/deskbot/internal/session"
	"github.com/deskbot-io/deskbot/internal/summarizer"
	"github.com/deskbot-io/deskbot/internal/ticket"
	"github.com/deskbot-io/deskbot/pkg/protocol"
)

// openGroup grants send permissions and marks the session OPEN. A
// transport failure leaves the state untouched and is returned raw.
func (c *Coordinator) openGroup(ctx context.Context, groupID string) error {
	if err := c.transport.SetGroupPermissions(ctx, groupID, true); err != nil {
		return fmt.Errorf("open %s: %w", groupID, err)
	}
	c.registry.Open(groupID, c.now())
	c.snap.Request()
	c.logger.Info("group opened", "group", groupID)
	return nil
}

// closeGroup revokes send permissions, marks the session CLOSED and runs
// the close-out sequence. The close transition always completes and the
// closing notice is always sent; summarization and ticket-store failures
// are reported inline. Closing an already-closed group with no log just
// sends the generic notice.
func (c *Coordinator) closeGroup(ctx context.Context, groupID string) error {
	if err := c.transport.SetGroupPermissions(ctx, groupID, false); err != nil {
		return fmt.Errorf("close %s: %w", groupID, err)
	}

	out := c.registry.MarkClosed(groupID)
	c.registry.ClearGroupInputs(groupID)

	notice := "🔒 Atendimento Encerrado."
	if len(out.Log) > 0 && out.TicketID != "" {
		notice += c.closeout(ctx, groupID, out)
	}

	if _, err := c.transport.SendMessage(ctx, groupID, notice, nil); err != nil {
		c.logger.Warn("closing notice failed", "group", groupID, "error", err)
	}
	c.snap.Request()
	c.logger.Info("group closed", "group", groupID, "ticket", out.TicketID, "log_entries", len(out.Log))
	return nil
}

// closeout runs the AI pipeline over the captured log and applies the
// resulting ticket updates. Returns the text to append to the closing
// notice. Ticket-store failures never abort the close.
func (c *Coordinator) closeout(ctx context.Context, groupID string, out session.Closeout) string {
	desc, err := c.store.Description(ctx, out.TicketID)
	if err != nil {
		c.logger.Warn("description fetch failed", "ticket", out.TicketID, "error", err)
		desc = ""
	}

	res := c.summ.Summarize(ctx, summarizer.Request{
		Log:          out.Log,
		CurrentDesc:  desc,
		FirstSession: out.FirstSession,
	})
	if res.Failed {
		return "\n\n⚠️ Erro na IA: " + res.Diagnostic
	}

	var fields ticket.Fields
	if res.TitleSuggestion != "" {
		fields.Description = &res.TitleSuggestion
	}
	if res.ShouldClose {
		status := protocol.TicketResolved
		fields.Status = &status
	}
	if fields.Description != nil || fields.Status != nil {
		if err := c.store.UpdateFields(ctx, out.TicketID, fields); err != nil {
			c.logger.Error("ticket update failed", "ticket", out.TicketID, "error", err)
		}
	}

	if err := c.store.AppendComment(ctx, out.TicketID, "IA Bot", res.Report, true); err != nil {
		c.logger.Error("report append failed", "ticket", out.TicketID, "error", err)
	}

	var b strings.Builder
	b.WriteString("\n\n✅ Relatório IA:")
	if len(res.Actions) > 0 {
		for _, action := range res.Actions {
			b.WriteString("\n" + action)
		}
	} else {
		b.WriteString("\nResumo anexado ao histórico.")
	}
	return b.String()
}
