package coordinator

import (
	"context"

	"github.com/deskbot-io/deskbot/internal/connector"
)

// Button action values. Ticket pick lists prefix the ticket id with
// actionUpdatePrefix or actionViewPrefix.
const (
	actionNewTicket    = "check"
	actionWaitYes      = "wait_yes"
	actionWaitNo       = "wait_no"
	actionCancel       = "cancel"
	actionListUpdate   = "list_update"
	actionListView     = "list_view"
	actionBack         = "back"
	actionUpdatePrefix = "upd_"
	actionViewPrefix   = "vw_"
)

func mainMenu() *connector.Markup {
	return &connector.Markup{Rows: [][]connector.Button{
		connector.Row("📝 Abrir Novo Chamado", actionNewTicket),
		connector.Row("🗣️ Falar sobre Chamado", actionListUpdate),
		connector.Row("📊 Consultar Andamento", actionListView),
	}}
}

func cancelMenu() *connector.Markup {
	return &connector.Markup{Rows: [][]connector.Button{
		connector.Row("🔙 Cancelar", actionCancel),
	}}
}

func backMenu() *connector.Markup {
	return &connector.Markup{Rows: [][]connector.Button{
		connector.Row("🔙 Voltar", actionBack),
	}}
}

func waitMenu() *connector.Markup {
	return &connector.Markup{Rows: [][]connector.Button{
		connector.Row("✅ Sim, aguardo", actionWaitYes),
		connector.Row("❌ Não, urgente", actionWaitNo),
	}}
}

// postMenu sends a fresh main-menu message to a group. Send failures are
// logged; the caller has nothing useful to do with them.
func (c *Coordinator) postMenu(ctx context.Context, groupID, text string) {
	if _, err := c.transport.SendMessage(ctx, groupID, text, mainMenu()); err != nil {
		c.logger.Warn("menu send failed", "group", groupID, "error", err)
	}
}
