package protocol

import "time"

// TicketStatus is the lifecycle state of a ticket in the external store.
// The values match the status names used by the tracking store.
type TicketStatus string

const (
	// TicketInProgress marks a ticket that is being worked on.
	TicketInProgress TicketStatus = "Em Andamento"
	// TicketResolved marks a ticket whose issue was solved.
	TicketResolved TicketStatus = "Finalizado"
)

// Ticket is a support issue record owned by the tracking store.
// IDs are derived from the creation timestamp (YYYYMMDDHHMMSS) so they
// sort lexically by creation time.
type Ticket struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Requester   string       `json:"requester"`
	Client      string       `json:"client"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TicketRef is a short listing entry for menu building.
type TicketRef struct {
	ID               string `json:"id"`
	ShortDescription string `json:"short_description"`
}
