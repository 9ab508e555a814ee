package events

import (
	"time"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketUpdated        EventType = "ticket_updated"
	EventConversationRejected EventType = "conversation_rejected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	TicketID       string      `json:"ticket_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Actor          string      `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber  string            `json:"ticket_number"`
	RequesterName string            `json:"requester_name"`
	RequestType   string            `json:"request_type"`
	Summary       string            `json:"summary"`
	Priority      domain.Priority   `json:"priority"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	Duplicates    int               `json:"duplicates"`
}

// TicketUpdatedPayload lists the fields an administrator changed.
type TicketUpdatedPayload struct {
	TicketNumber string                 `json:"ticket_number"`
	Changes      []domain.TicketHistory `json:"changes"`
}

// ConversationRejectedPayload payload.
type ConversationRejectedPayload struct {
	UserID      string `json:"user_id"`
	RequestType string `json:"request_type"`
}
