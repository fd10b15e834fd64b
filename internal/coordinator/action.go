package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskbot-io/deskbot/internal/connector"
	"github.com/deskbot-io/deskbot/internal/session"
)

func (c *Coordinator) handleAction(ctx context.Context, act connector.Action) {
	switch {
	case act.Value == actionNewTicket:
		if c.settings.Hours.Contains(c.now()) {
			c.startNewTicketFlow(ctx, act)
			return
		}
		c.edit(ctx, act, "🌙 Fora de horário. Pode aguardar até o próximo expediente?", waitMenu())

	case act.Value == actionWaitYes:
		c.startNewTicketFlow(ctx, act)

	case act.Value == actionWaitNo:
		c.startUrgentFlow(ctx, act)

	case act.Value == actionCancel:
		c.registry.ClearInput(act.SenderID, act.GroupID)
		if err := c.closeGroup(ctx, act.GroupID); err != nil {
			c.logger.Warn("cancel close failed", "group", act.GroupID, "error", err)
		}
		c.edit(ctx, act, "🚫 Operação Cancelada.", mainMenu())
		c.snap.Request()

	case act.Value == actionListUpdate || act.Value == actionListView:
		c.listTickets(ctx, act)

	case strings.HasPrefix(act.Value, actionUpdatePrefix):
		c.startCommentFlow(ctx, act, strings.TrimPrefix(act.Value, actionUpdatePrefix))

	case strings.HasPrefix(act.Value, actionViewPrefix):
		c.showHistory(ctx, act, strings.TrimPrefix(act.Value, actionViewPrefix))

	case act.Value == actionBack:
		c.edit(ctx, act, "🤖 Menu Principal", mainMenu())

	default:
		c.logger.Warn("unknown action", "value", act.Value, "group", act.GroupID)
	}
}

// startNewTicketFlow opens the group and arms the new-ticket directive:
// the requester's next message becomes the ticket description.
func (c *Coordinator) startNewTicketFlow(ctx context.Context, act connector.Action) {
	if err := c.openGroup(ctx, act.GroupID); err != nil {
		c.edit(ctx, act, fmt.Sprintf("Erro: %v", err), nil)
		return
	}
	c.registry.SetInput(act.SenderID, act.GroupID, session.InputState{Kind: session.AwaitingNewTicket})
	c.edit(ctx, act, fmt.Sprintf("🔓 Liberado!\n%s, digite ou grave um áudio sobre o problema:", act.SenderName), cancelMenu())
	c.registry.SetPrompt(act.SenderID, act.GroupID, act.MessageID)
	c.snap.Request()
}

// startUrgentFlow is the out-of-hours path: the group still opens, but the
// requester is told to also call the on-call contact.
func (c *Coordinator) startUrgentFlow(ctx context.Context, act connector.Action) {
	if err := c.openGroup(ctx, act.GroupID); err != nil {
		c.edit(ctx, act, fmt.Sprintf("Erro: %v", err), nil)
		return
	}
	c.registry.SetInput(act.SenderID, act.GroupID, session.InputState{Kind: session.AwaitingNewTicket})
	text := fmt.Sprintf(
		"🚨 ATENÇÃO: MODO PLANTÃO 🚨\n\n⚠️ Para atendimento imediato, LIGUE para:\n📞 %s - Falar com %s\n\n🔓 O grupo foi liberado para registro, mas ligue após enviar a mensagem (texto ou áudio).",
		c.settings.OnCallPhone, c.settings.OnCallName,
	)
	c.edit(ctx, act, text, cancelMenu())
	c.registry.SetPrompt(act.SenderID, act.GroupID, act.MessageID)
	c.snap.Request()
}

func (c *Coordinator) listTickets(ctx context.Context, act connector.Action) {
	client := c.dir.Name(ctx, act.GroupID)
	refs, err := c.store.ListOpen(ctx, client)
	if err != nil {
		c.logger.Error("ticket list failed", "client", client, "error", err)
		c.edit(ctx, act, fmt.Sprintf("❌ Erro ao listar chamados: %v", err), backMenu())
		return
	}
	if len(refs) == 0 {
		c.edit(ctx, act, "📂 Nenhum chamado ativo.", backMenu())
		return
	}

	prefix := actionUpdatePrefix
	if act.Value == actionListView {
		prefix = actionViewPrefix
	}
	markup := &connector.Markup{}
	for _, ref := range refs {
		markup.Rows = append(markup.Rows, connector.Row(
			fmt.Sprintf("[%s] %s", ref.ID, ref.ShortDescription),
			prefix+ref.ID,
		))
	}
	markup.Rows = append(markup.Rows, connector.Row("🔙 Voltar", actionBack))
	c.edit(ctx, act, "👇 Selecione:", markup)
}

// startCommentFlow opens the group and binds the chosen ticket so the
// conversation is attributed to it. The directive persists until a new
// menu action or the close supersedes it.
func (c *Coordinator) startCommentFlow(ctx context.Context, act connector.Action, ticketID string) {
	if err := c.openGroup(ctx, act.GroupID); err != nil {
		c.edit(ctx, act, fmt.Sprintf("Erro: %v", err), nil)
		return
	}
	c.registry.SetInput(act.SenderID, act.GroupID, session.InputState{Kind: session.AwaitingComment, TicketID: ticketID})
	c.registry.BindTicket(act.GroupID, ticketID)
	c.edit(ctx, act, fmt.Sprintf("🔓 Liberado!\nFalando sobre: %s\n\n%s, pode digitar ou enviar um áudio.", ticketID, act.SenderName), nil)
	c.snap.Request()
}

func (c *Coordinator) showHistory(ctx context.Context, act connector.Action, ticketID string) {
	blocks, err := c.store.History(ctx, ticketID)
	if err != nil {
		c.logger.Error("history fetch failed", "ticket", ticketID, "error", err)
		c.edit(ctx, act, fmt.Sprintf("❌ Erro ao buscar histórico: %v", err), backMenu())
		return
	}
	body := "Sem histórico."
	if len(blocks) > 0 {
		body = strings.Join(blocks, "\n\n")
	}
	c.edit(ctx, act, fmt.Sprintf("📊 Histórico %s:\n\n%s", ticketID, body), backMenu())
}

func (c *Coordinator) edit(ctx context.Context, act connector.Action, text string, markup *connector.Markup) {
	if err := c.transport.EditMessage(ctx, act.GroupID, act.MessageID, text, markup); err != nil {
		c.logger.Warn("message edit failed", "group", act.GroupID, "error", err)
	}
}
