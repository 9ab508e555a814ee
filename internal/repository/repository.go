package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

// ErrNotFound is returned by every backend when a keyed lookup has no row.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict is returned when a unique key (ticket number, conversation id) is already taken.
var ErrConflict = errors.New("repository: conflict")

// ConversationRepository persists dialogue state.
type ConversationRepository interface {
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	Save(ctx context.Context, conv *domain.Conversation) error
	// DeleteStale removes conversations not updated since before, except completed ones.
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// TicketFilter captures admin listing parameters.
type TicketFilter struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	GetByConversationID(ctx context.Context, conversationID string) (*domain.Ticket, error)
	// ListOpen returns every ticket whose status is not Closed.
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	// List returns tickets newest first.
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
}

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

// KnowledgeBaseRepository exposes reference articles in stored order.
type KnowledgeBaseRepository interface {
	List(ctx context.Context) ([]domain.KnowledgeBaseEntry, error)
	Upsert(ctx context.Context, entry *domain.KnowledgeBaseEntry) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Conversations ConversationRepository
	Tickets       TicketRepository
	History       TicketHistoryRepository
	Knowledge     KnowledgeBaseRepository
	// Ping checks backend reachability; nil for backends that cannot fail.
	Ping func(ctx context.Context) error
}
