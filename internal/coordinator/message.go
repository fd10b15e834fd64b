package coordinator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/deskbot-io/deskbot/internal/connector"
	"github.com/deskbot-io/deskbot/internal/session"
	"github.com/deskbot-io/deskbot/internal/ticket"
)

const photoLogEntry = "[O usuário enviou uma IMAGEM]"

func (c *Coordinator) handleMessage(ctx context.Context, msg connector.Message) {
	if msg.Kind == connector.KindText && strings.HasPrefix(msg.Content, "/") {
		c.handleCommand(ctx, msg)
		return
	}

	content := c.resolveContent(ctx, msg)
	if content == "" {
		return
	}

	c.registry.Append(msg.GroupID, msg.SenderName, content, c.now())

	// An image while a ticket is bound gets an immediate best-effort note,
	// independent of the tracker state.
	if msg.Kind == connector.KindPhoto {
		if tid := c.registry.ActiveTicket(msg.GroupID); tid != "" {
			if err := c.store.AppendComment(ctx, tid, msg.SenderName, "📷 [IMAGEM ENVIADA PELO CLIENTE]", false); err != nil {
				c.logger.Warn("image note failed", "ticket", tid, "error", err)
			}
		}
	}

	if st, ok := c.registry.Input(msg.SenderID, msg.GroupID); ok && st.Kind == session.AwaitingNewTicket {
		c.createTicketFromInput(ctx, msg, content)
	}
	c.snap.Request()
}

// resolveContent turns the inbound message into log text. Voice messages
// are transcribed with a visible status message; failures degrade to a
// placeholder entry so the session log still records that audio arrived.
func (c *Coordinator) resolveContent(ctx context.Context, msg connector.Message) string {
	switch msg.Kind {
	case connector.KindText:
		return msg.Content
	case connector.KindPhoto:
		return photoLogEntry
	case connector.KindVoice:
		return c.transcribeVoice(ctx, msg)
	default:
		return ""
	}
}

func (c *Coordinator) transcribeVoice(ctx context.Context, msg connector.Message) string {
	if c.stt == nil {
		return "[Áudio enviado (transcrição desativada)]"
	}

	statusID, err := c.transport.SendMessage(ctx, msg.GroupID, "🎙️ Transcrevendo áudio...", nil)
	if err != nil {
		c.logger.Warn("voice status message failed", "group", msg.GroupID, "error", err)
	}
	editStatus := func(text string) {
		if statusID == "" {
			return
		}
		if err := c.transport.EditMessage(ctx, msg.GroupID, statusID, text, nil); err != nil {
			c.logger.Warn("voice status edit failed", "group", msg.GroupID, "error", err)
		}
	}

	path, err := c.transport.DownloadVoice(ctx, msg.FileRef)
	if err != nil {
		c.logger.Error("voice download failed", "group", msg.GroupID, "error", err)
		editStatus("⚠️ Erro ao processar áudio.")
		return "[Áudio enviado (erro no download)]"
	}
	defer os.Remove(path)

	text, err := c.stt.Transcribe(ctx, path)
	if err != nil {
		c.logger.Error("transcription failed", "group", msg.GroupID, "error", err)
		editStatus("⚠️ Erro ao transcrever áudio.")
		return "[Áudio enviado (erro na transcrição)]"
	}

	editStatus("🎙️ Transcrição:\n" + ticket.Sanitize(text))
	return text
}

// createTicketFromInput resolves an AwaitingNewTicket directive: the
// message content becomes the new ticket's description. The tracker entry
// and the prompt message are cleared even when the store call fails.
func (c *Coordinator) createTicketFromInput(ctx context.Context, msg connector.Message, content string) {
	defer func() {
		c.registry.ClearInput(msg.SenderID, msg.GroupID)
		if promptID, ok := c.registry.TakePrompt(msg.SenderID, msg.GroupID); ok {
			if err := c.transport.DeleteMessage(ctx, msg.GroupID, promptID); err != nil {
				c.logger.Debug("prompt retraction failed", "group", msg.GroupID, "error", err)
			}
		}
	}()

	client := c.dir.Name(ctx, msg.GroupID)
	desc := ticket.Sanitize(content)

	tid, err := c.store.Create(ctx, msg.SenderName, desc, client)
	if err != nil {
		c.logger.Error("ticket create failed", "group", msg.GroupID, "error", err)
		c.reply(ctx, msg.GroupID, fmt.Sprintf("❌ Erro ao abrir chamado: %v", err))
		return
	}

	c.registry.BindTicket(msg.GroupID, tid)
	c.registry.MarkFirstSession(tid)
	c.reply(ctx, msg.GroupID, fmt.Sprintf("✅ Chamado %s Aberto!", tid))
	c.logger.Info("ticket created", "ticket", tid, "group", msg.GroupID, "requester", msg.SenderName)
}

func (c *Coordinator) reply(ctx context.Context, groupID, text string) {
	if _, err := c.transport.SendMessage(ctx, groupID, text, nil); err != nil {
		c.logger.Warn("reply failed", "group", groupID, "error", err)
	}
}
