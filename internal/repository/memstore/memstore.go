// Package memstore keeps every repository in process memory. It backs the
// "memory" store driver and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
)

// New returns an empty in-memory store.
func New() *repository.Store {
	db := &memory{
		conversations: make(map[string]*domain.Conversation),
		tickets:       make(map[string]*domain.Ticket),
		history:       make(map[string][]domain.TicketHistory),
	}
	return &repository.Store{
		Conversations: &conversations{db},
		Tickets:       &tickets{db},
		History:       &history{db},
		Knowledge:     &knowledge{db},
	}
}

type memory struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	tickets       map[string]*domain.Ticket
	history       map[string][]domain.TicketHistory
	knowledge     []domain.KnowledgeBaseEntry
}

type conversations struct{ db *memory }

func (r *conversations) Get(_ context.Context, id string) (*domain.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	conv, ok := r.db.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return conv.Clone(), nil
}

func (r *conversations) Save(_ context.Context, conv *domain.Conversation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.conversations[conv.ID] = conv.Clone()
	return nil
}

func (r *conversations) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var removed int64
	for id, conv := range r.db.conversations {
		if conv.State != domain.StateCompleted && conv.UpdatedAt.Before(before) {
			delete(r.db.conversations, id)
			removed++
		}
	}
	return removed, nil
}

type tickets struct{ db *memory }

func (r *tickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.tickets[ticket.ID]; exists {
		return fmt.Errorf("%w: id", repository.ErrConflict)
	}
	for _, existing := range r.db.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return fmt.Errorf("%w: ticket_number", repository.ErrConflict)
		}
		if ticket.ConversationID != "" && existing.ConversationID == ticket.ConversationID {
			return fmt.Errorf("%w: conversation_id", repository.ErrConflict)
		}
	}
	cp := *ticket
	r.db.tickets[ticket.ID] = &cp
	return nil
}

func (r *tickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *tickets) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	return r.find(func(t *domain.Ticket) bool { return t.TicketNumber == number })
}

func (r *tickets) GetByConversationID(_ context.Context, conversationID string) (*domain.Ticket, error) {
	return r.find(func(t *domain.Ticket) bool { return t.ConversationID == conversationID })
}

func (r *tickets) find(match func(*domain.Ticket) bool) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, t := range r.db.tickets {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tickets) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	all := r.sorted(false)
	open := all[:0]
	for _, t := range all {
		if t.Status != domain.TicketStatusClosed {
			open = append(open, t)
		}
	}
	return open, nil
}

func (r *tickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	all := r.sorted(true)
	if len(filter.Statuses) > 0 {
		wanted := make(map[domain.TicketStatus]bool, len(filter.Statuses))
		for _, s := range filter.Statuses {
			wanted[s] = true
		}
		kept := all[:0]
		for _, t := range all {
			if wanted[t.Status] {
				kept = append(kept, t)
			}
		}
		all = kept
	}
	if filter.Limit > 0 {
		start := filter.Offset
		if start < 0 {
			start = 0
		}
		if start > len(all) {
			start = len(all)
		}
		end := start + filter.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	return all, nil
}

// sorted returns copies ordered by creation time.
func (r *tickets) sorted(newestFirst bool) []domain.Ticket {
	r.db.mu.RLock()
	out := make([]domain.Ticket, 0, len(r.db.tickets))
	for _, t := range r.db.tickets {
		out = append(out, *t)
	}
	r.db.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			a, b = b, a
		}
		if a.CreatedDate.Equal(b.CreatedDate) {
			return a.TicketNumber < b.TicketNumber
		}
		return a.CreatedDate.Before(b.CreatedDate)
	})
	return out
}

func (r *tickets) Update(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Status = ticket.Status
	existing.TicketOwner = ticket.TicketOwner
	existing.EstimatedStartDate = ticket.EstimatedStartDate
	existing.EstimatedEndDate = ticket.EstimatedEndDate
	existing.UpdatedAt = ticket.UpdatedAt
	return nil
}

type history struct{ db *memory }

func (r *history) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.history[entry.TicketID] = append(r.db.history[entry.TicketID], *entry)
	return nil
}

func (r *history) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]domain.TicketHistory(nil), r.db.history[ticketID]...), nil
}

type knowledge struct{ db *memory }

func (r *knowledge) List(_ context.Context) ([]domain.KnowledgeBaseEntry, error) {
	r.db.mu.RLock()
	out := append([]domain.KnowledgeBaseEntry(nil), r.db.knowledge...)
	r.db.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *knowledge) Upsert(_ context.Context, entry *domain.KnowledgeBaseEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.knowledge {
		if r.db.knowledge[i].ID == entry.ID {
			created := r.db.knowledge[i].CreatedAt
			r.db.knowledge[i] = *entry
			r.db.knowledge[i].CreatedAt = created
			return nil
		}
	}
	r.db.knowledge = append(r.db.knowledge, *entry)
	return nil
}
