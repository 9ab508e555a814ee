package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bi-triage-agent/internal/api/dto"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/service"
	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

// ConversationHandler exposes the intake dialogue.
type ConversationHandler struct {
	service *service.ConversationService
}

// NewConversationHandler constructs handler.
func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: conversationService}
}

// Start POST /api/conversation/start.
func (h *ConversationHandler) Start(c *fiber.Ctx) error {
	var req dto.StartConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	res, err := h.service.Start(c.UserContext(), req.UserID, req.UserName)
	if err != nil {
		return err
	}
	return c.JSON(dto.StartConversationResponse{
		ConversationID: res.Conversation.ID,
		SessionID:      res.Conversation.SessionID,
		Message:        res.Message,
		RequestTypes:   res.RequestTypes,
		CurrentStep:    string(res.Conversation.State),
	})
}

// SelectType POST /api/conversation/select-type.
func (h *ConversationHandler) SelectType(c *fiber.Ctx) error {
	var req dto.SelectTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireConversationID(req.ConversationID); err != nil {
		return err
	}
	res, err := h.service.SelectType(c.UserContext(), req.ConversationID, req.RequestType)
	if err != nil {
		return err
	}
	return c.JSON(questionResponse(res))
}

// Respond POST /api/conversation/respond.
func (h *ConversationHandler) Respond(c *fiber.Ctx) error {
	var req dto.RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireConversationID(req.ConversationID); err != nil {
		return err
	}
	res, err := h.service.Respond(c.UserContext(), req.ConversationID, req.Response)
	if err != nil {
		return err
	}
	return c.JSON(questionResponse(res))
}

// ImpactTimeline POST /api/conversation/impact-timeline.
func (h *ConversationHandler) ImpactTimeline(c *fiber.Ctx) error {
	var req dto.ImpactTimelineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireConversationID(req.ConversationID); err != nil {
		return err
	}
	res, err := h.service.SubmitImpactTimeline(c.UserContext(), req.ConversationID, req.Responses)
	if err != nil {
		return err
	}
	conv := res.Conversation
	return c.JSON(dto.SummaryResponse{
		Message: res.Message,
		Summary: dto.SummaryView{
			RequestType:  res.RequestTypeName,
			Summary:      conv.Summary,
			Priority:     conv.Priority,
			Difficulty:   conv.Difficulty,
			Impact:       res.Answers.Impact,
			Timeline:     res.Answers.Timeline,
			Frequency:    res.Answers.Frequency,
			Requirements: res.Answers.Requirements,
			Links:        res.Answers.Links,
		},
		CurrentStep: string(conv.State),
	})
}

// Confirm POST /api/conversation/confirm.
func (h *ConversationHandler) Confirm(c *fiber.Ctx) error {
	var req dto.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireConversationID(req.ConversationID); err != nil {
		return err
	}
	if req.Confirmed == nil {
		return apperrors.NewValidationError("confirmed is required", map[string]any{"confirmed": "required"})
	}
	res, err := h.service.Confirm(c.UserContext(), req.ConversationID, *req.Confirmed)
	if err != nil {
		return err
	}

	resp := dto.ConfirmResponse{
		Message:     res.Message,
		Duplicates:  len(res.Duplicates),
		CurrentStep: string(res.Conversation.State),
	}
	if res.Ticket != nil {
		resp.Ticket = &dto.CreatedTicket{
			TicketNumber: res.Ticket.TicketNumber,
			Status:       res.Ticket.Status,
			Priority:     res.Ticket.Priority,
			Difficulty:   res.Ticket.Difficulty,
		}
	}
	for _, entry := range res.Suggestions {
		resp.Suggestions = append(resp.Suggestions, dto.Suggestion{
			ID:       entry.ID,
			Title:    entry.Title,
			Category: entry.Category,
			Content:  entry.Content,
		})
	}
	return c.JSON(resp)
}

// Get GET /api/conversation/:id.
func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	conv, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(conversationResponse(conv))
}

func requireConversationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("conversationId is required", map[string]any{"conversationId": "required"})
	}
	return nil
}

func questionResponse(res *service.QuestionResult) dto.QuestionResponse {
	resp := dto.QuestionResponse{
		Message:     res.Message,
		CurrentStep: string(res.Conversation.State),
	}
	if len(res.Questions) > 0 {
		resp.Questions = res.Questions
		return resp
	}
	index, total := res.QuestionIndex, res.TotalQuestions
	resp.Question = res.Question
	resp.QuestionIndex = &index
	resp.TotalQuestions = &total
	return resp
}

func conversationResponse(conv *domain.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ConversationID: conv.ID,
		SessionID:      conv.SessionID,
		UserID:         conv.UserID,
		UserName:       conv.UserName,
		CurrentStep:    string(conv.State),
		RequestType:    conv.RequestType,
		QuestionIndex:  conv.QuestionIndex,
		Responses:      conv.Responses,
		Summary:        conv.Summary,
		Priority:       conv.Priority,
		Difficulty:     conv.Difficulty,
		TicketNumber:   conv.TicketNumber,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}
}
