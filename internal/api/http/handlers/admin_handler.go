package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bi-triage-agent/internal/api/dto"
	"github.com/spec-kit/bi-triage-agent/internal/auth"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
	"github.com/spec-kit/bi-triage-agent/internal/service"
	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

// AdminHandler exposes the BI team's ticket management endpoints.
type AdminHandler struct {
	tickets *service.TicketService
	auth    *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(ticketService *service.TicketService, authService *service.AuthService) *AdminHandler {
	return &AdminHandler{tickets: ticketService, auth: authService}
}

// Login POST /api/admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	token, exp, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: exp})
}

// ListTickets GET /api/admin/tickets.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AdminTicket, 0, len(tickets))
	for i := range tickets {
		items = append(items, adminTicket(&tickets[i]))
	}
	return c.JSON(items)
}

// Stats GET /api/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// UpdateTicket PUT /api/admin/ticket/:id.
func (h *AdminHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	update, err := toTicketUpdate(req)
	if err != nil {
		return err
	}

	actor := "admin"
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor = principal.Username
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), c.Params("id"), actor, update)
	if err != nil {
		return err
	}
	return c.JSON(dto.UpdateTicketResponse{
		Message: "Ticket updated successfully",
		Ticket:  adminTicket(ticket),
	})
}

// History GET /api/admin/ticket/:id/history.
func (h *AdminHandler) History(c *fiber.Ctx) error {
	entries, err := h.tickets.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return c.JSON(entries)
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, domain.TicketStatus(part))
			}
		}
	}
	var err error
	if filter.Limit, err = parseInt(c.Query("limit"), 0); err != nil {
		return filter, apperrors.NewValidationError("limit must be an integer", nil)
	}
	if filter.Offset, err = parseInt(c.Query("offset"), 0); err != nil {
		return filter, apperrors.NewValidationError("offset must be an integer", nil)
	}
	return filter, nil
}

func parseInt(val string, def int) (int, error) {
	if val == "" {
		return def, nil
	}
	return strconv.Atoi(val)
}

func toTicketUpdate(req dto.UpdateTicketRequest) (domain.TicketUpdate, error) {
	var update domain.TicketUpdate
	if req.Status != nil {
		status := domain.TicketStatus(strings.TrimSpace(*req.Status))
		update.Status = &status
	}
	update.TicketOwner = req.TicketOwner

	var err error
	if update.EstimatedStartDate, err = parseDate("estimated_start_date", req.EstimatedStartDate); err != nil {
		return update, err
	}
	if update.EstimatedEndDate, err = parseDate("estimated_end_date", req.EstimatedEndDate); err != nil {
		return update, err
	}
	return update, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field string, val *string) (*time.Time, error) {
	if val == nil {
		return nil, nil
	}
	raw := strings.TrimSpace(*val)
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError(field+" must be a date (YYYY-MM-DD)", map[string]any{field: raw})
}
