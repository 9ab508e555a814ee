package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bi-triage-agent/internal/api/dto"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/service"
)

const dateLayout = "2006-01-02"

// TicketsHandler serves requester ticket lookups.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// GetTicket GET /api/ticket/:ticketNumber.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("ticketNumber"))
	if err != nil {
		return err
	}
	return c.JSON(dto.TicketStatusResponse{
		TicketNumber:       ticket.TicketNumber,
		Status:             ticket.Status,
		Priority:           ticket.Priority,
		Difficulty:         ticket.Difficulty,
		RequestType:        ticket.RequestType,
		Summary:            ticket.Summary,
		CreatedDate:        ticket.CreatedDate,
		EstimatedStartDate: formatDate(ticket.EstimatedStartDate),
		EstimatedEndDate:   formatDate(ticket.EstimatedEndDate),
		TicketOwner:        ticket.TicketOwner,
	})
}

func adminTicket(ticket *domain.Ticket) dto.AdminTicket {
	return dto.AdminTicket{
		ID:                 ticket.ID,
		TicketNumber:       ticket.TicketNumber,
		ConversationID:     ticket.ConversationID,
		CreatedDate:        ticket.CreatedDate,
		RequesterName:      ticket.RequesterName,
		RequesterID:        ticket.RequesterID,
		RequestType:        ticket.RequestType,
		Summary:            ticket.Summary,
		Impact:             ticket.Impact,
		Priority:           ticket.Priority,
		Difficulty:         ticket.Difficulty,
		Status:             ticket.Status,
		TicketOwner:        ticket.TicketOwner,
		EstimatedStartDate: formatDate(ticket.EstimatedStartDate),
		EstimatedEndDate:   formatDate(ticket.EstimatedEndDate),
		Links:              ticket.Links,
		RawConversation:    ticket.RawConversation,
		UpdatedAt:          ticket.UpdatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateLayout)
	return &s
}
