package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskbot-io/deskbot/internal/connector"
)

func (c *Coordinator) handleCommand(ctx context.Context, msg connector.Message) {
	fields := strings.Fields(msg.Content)
	if len(fields) == 0 {
		return
	}
	// Strip the bot-mention suffix Telegram appends in groups.
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := strings.Join(fields[1:], " ")

	switch cmd {
	case "/start", "/iniciar":
		c.cmdStart(ctx, msg)
	case "/fim":
		if err := c.closeGroup(ctx, msg.GroupID); err != nil {
			c.reply(ctx, msg.GroupID, fmt.Sprintf("Erro: %v", err))
			return
		}
		c.postMenu(ctx, msg.GroupID, "🔒 Menu")
	case "/aviso":
		c.cmdBroadcast(ctx, msg, args)
	case "/debug":
		c.cmdDebug(ctx, msg)
	default:
		c.logger.Debug("unknown command", "command", cmd, "group", msg.GroupID)
	}
}

func (c *Coordinator) cmdStart(ctx context.Context, msg connector.Message) {
	name := c.dir.Name(ctx, msg.GroupID)
	if name == msg.GroupID {
		c.reply(ctx, msg.GroupID, fmt.Sprintf("⚠️ Grupo %s não cadastrado.", msg.GroupID))
		return
	}
	if err := c.closeGroup(ctx, msg.GroupID); err != nil {
		c.reply(ctx, msg.GroupID, fmt.Sprintf("Erro: %v", err))
		return
	}
	c.postMenu(ctx, msg.GroupID, fmt.Sprintf("🤖 Atendimento %s", name))
}

func (c *Coordinator) cmdBroadcast(ctx context.Context, msg connector.Message, text string) {
	if !c.isAdmin(msg.SenderID) {
		return
	}
	if text == "" {
		c.reply(ctx, msg.GroupID, "⚠️ Use: /aviso <mensagem>")
		return
	}

	c.refreshDirectory(ctx)
	statusID, err := c.transport.SendMessage(ctx, msg.GroupID, "⏳ Enviando...", nil)
	if err != nil {
		c.logger.Warn("broadcast status message failed", "error", err)
	}

	sent, failed := c.Broadcast(ctx, text)

	result := fmt.Sprintf("✅ OK: %d | Falhas: %d", sent, failed)
	if statusID != "" {
		if err := c.transport.EditMessage(ctx, msg.GroupID, statusID, result, nil); err != nil {
			c.logger.Warn("broadcast result edit failed", "error", err)
		}
		return
	}
	c.reply(ctx, msg.GroupID, result)
}

func (c *Coordinator) cmdDebug(ctx context.Context, msg connector.Message) {
	if !c.isAdmin(msg.SenderID) {
		return
	}
	active := c.registry.ActiveTicket(msg.GroupID)
	if active == "" {
		active = "Nenhum"
	}
	c.reply(ctx, msg.GroupID, fmt.Sprintf(
		"🛠 Status\nClientes: %d\nGrupo: %s\nMsgs Log: %d\nTicket Ativo: %s",
		c.dir.Len(),
		c.registry.Status(msg.GroupID),
		c.registry.LogLen(msg.GroupID),
		active,
	))
}

func (c *Coordinator) isAdmin(senderID string) bool {
	return c.settings.AdminID != "" && senderID == c.settings.AdminID
}
