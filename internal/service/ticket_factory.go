package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/catalog"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

const (
	ticketNumberPrefix  = "BI-"
	ticketNumberModulus = 1_000_000
	maxNumberAttempts   = 16
)

// TicketNumberGenerator issues BI-###### numbers from a clock-seeded
// monotonic counter, so two calls in the same millisecond never collide.
type TicketNumberGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewTicketNumberGenerator builds a generator reading the given clock.
func NewTicketNumberGenerator(now func() time.Time) *TicketNumberGenerator {
	if now == nil {
		now = time.Now
	}
	return &TicketNumberGenerator{now: now}
}

// Next returns the next ticket number.
func (g *TicketNumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	value := g.now().UnixMilli()
	if value <= g.last {
		value = g.last + 1
	}
	g.last = value
	return fmt.Sprintf("%s%06d", ticketNumberPrefix, value%ticketNumberModulus)
}

// TicketFactory turns a confirmed conversation into a persisted ticket.
type TicketFactory struct {
	tickets repository.TicketRepository
	numbers *TicketNumberGenerator
	logger  *zap.Logger
	now     func() time.Time
}

// NewTicketFactory constructs the factory.
func NewTicketFactory(tickets repository.TicketRepository, numbers *TicketNumberGenerator, logger *zap.Logger, now func() time.Time) *TicketFactory {
	if now == nil {
		now = time.Now
	}
	if numbers == nil {
		numbers = NewTicketNumberGenerator(now)
	}
	return &TicketFactory{tickets: tickets, numbers: numbers, logger: logger, now: now}
}

// rawConversation is the audit snapshot stored on the ticket.
type rawConversation struct {
	ConversationID string            `json:"conversationId"`
	UserID         string            `json:"userId"`
	UserName       string            `json:"userName"`
	SessionID      string            `json:"sessionId"`
	RequestType    string            `json:"requestType"`
	Responses      map[string]string `json:"responses"`
	Summary        string            `json:"summary"`
	Priority       domain.Priority   `json:"priority"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	StartedAt      time.Time         `json:"startedAt"`
}

// Create persists the ticket for conv. If a ticket already exists for the
// conversation it is returned unchanged, so a replay after a partial failure
// never produces a second ticket.
func (f *TicketFactory) Create(ctx context.Context, conv *domain.Conversation) (*domain.Ticket, error) {
	if conv.State != domain.StateConfirmation {
		return nil, apperrors.NewInvalidStateTransition("create ticket", string(conv.State))
	}
	if conv.Summary == "" || conv.Priority == "" || conv.Difficulty == "" {
		return nil, apperrors.NewValidationError("conversation has not been classified", map[string]any{
			"conversation_id": conv.ID,
		})
	}

	if existing, err := f.tickets.GetByConversationID(ctx, conv.ID); err == nil {
		f.logger.Info("ticket already exists for conversation",
			zap.String("conversation_id", conv.ID),
			zap.String("ticket_number", existing.TicketNumber))
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewStorageError("load ticket", err)
	}

	raw, err := json.Marshal(rawConversation{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		UserName:       conv.UserName,
		SessionID:      conv.SessionID,
		RequestType:    conv.RequestType,
		Responses:      conv.Responses,
		Summary:        conv.Summary,
		Priority:       conv.Priority,
		Difficulty:     conv.Difficulty,
		StartedAt:      conv.CreatedAt,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	requestType := conv.RequestType
	if rt, ok := catalog.Lookup(conv.RequestType); ok {
		requestType = rt.Name
	}

	now := f.now().UTC()
	ticket := &domain.Ticket{
		ID:              uuid.NewString(),
		ConversationID:  conv.ID,
		CreatedDate:     now,
		RequesterName:   conv.UserName,
		RequesterID:     conv.UserID,
		RequestType:     requestType,
		Summary:         conv.Summary,
		Impact:          conv.Responses[domain.SlotImpact],
		Priority:        conv.Priority,
		Difficulty:      conv.Difficulty,
		Status:          domain.TicketStatusNew,
		Links:           strings.TrimSpace(conv.Responses[domain.SlotLinks]),
		RawConversation: string(raw),
		UpdatedAt:       now,
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		ticket.TicketNumber = f.numbers.Next()

		if _, err := f.tickets.GetByNumber(ctx, ticket.TicketNumber); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewStorageError("probe ticket number", err)
		}

		err := f.tickets.Create(ctx, ticket)
		if err == nil {
			f.logger.Info("ticket created",
				zap.String("ticket_number", ticket.TicketNumber),
				zap.String("conversation_id", conv.ID),
				zap.String("priority", string(ticket.Priority)))
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewStorageError("create ticket", err)
		}
		// The conflict is either a number race or a concurrent create for this conversation.
		if existing, lookupErr := f.tickets.GetByConversationID(ctx, conv.ID); lookupErr == nil {
			return existing, nil
		}
	}

	return nil, apperrors.NewStorageError("allocate ticket number",
		fmt.Errorf("no free ticket number after %d attempts", maxNumberAttempts))
}
