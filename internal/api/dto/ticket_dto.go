package dto

import (
	"time"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

// TicketStatusResponse is the requester-facing view of a ticket.
type TicketStatusResponse struct {
	TicketNumber       string              `json:"ticketNumber"`
	Status             domain.TicketStatus `json:"status"`
	Priority           domain.Priority     `json:"priority"`
	Difficulty         domain.Difficulty   `json:"difficulty"`
	RequestType        string              `json:"requestType"`
	Summary            string              `json:"summary"`
	CreatedDate        time.Time           `json:"createdDate"`
	EstimatedStartDate *string             `json:"estimatedStartDate"`
	EstimatedEndDate   *string             `json:"estimatedEndDate"`
	TicketOwner        *string             `json:"ticketOwner"`
}

// AdminTicket is one row of the admin table. Field names match the ticket columns.
type AdminTicket struct {
	ID                 string              `json:"id"`
	TicketNumber       string              `json:"ticket_number"`
	ConversationID     string              `json:"conversation_id"`
	CreatedDate        time.Time           `json:"created_date"`
	RequesterName      string              `json:"requester_name"`
	RequesterID        string              `json:"requester_id"`
	RequestType        string              `json:"request_type"`
	Summary            string              `json:"summary"`
	Impact             string              `json:"impact"`
	Priority           domain.Priority     `json:"priority"`
	Difficulty         domain.Difficulty   `json:"difficulty"`
	Status             domain.TicketStatus `json:"status"`
	TicketOwner        *string             `json:"ticket_owner"`
	EstimatedStartDate *string             `json:"estimated_start_date"`
	EstimatedEndDate   *string             `json:"estimated_end_date"`
	Links              string              `json:"links"`
	RawConversation    string              `json:"raw_conversation"`
	UpdatedAt          time.Time           `json:"updated_date"`
}

// UpdateTicketRequest is the admin PUT body. Absent or null fields are left unchanged.
type UpdateTicketRequest struct {
	Status             *string `json:"status"`
	TicketOwner        *string `json:"ticket_owner"`
	EstimatedStartDate *string `json:"estimated_start_date"`
	EstimatedEndDate   *string `json:"estimated_end_date"`
}

// UpdateTicketResponse is returned by PUT /api/admin/ticket/:id.
type UpdateTicketResponse struct {
	Message string      `json:"message"`
	Ticket  AdminTicket `json:"ticket"`
}

// AdminLoginRequest payload.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
