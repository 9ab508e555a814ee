package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

// cachedTicketRepository serves ticket-number lookups from an expiring LRU.
// Local writes evict their entry at once; writes made by other replicas show
// up once the entry expires.
type cachedTicketRepository struct {
	TicketRepository
	byNumber *expirable.LRU[string, domain.Ticket]
}

// NewCachedTicketRepository wraps inner with a read cache of size entries,
// each kept for at most ttl. A non-positive size or ttl disables the cache.
func NewCachedTicketRepository(inner TicketRepository, size int, ttl time.Duration) TicketRepository {
	if size <= 0 || ttl <= 0 {
		return inner
	}
	return &cachedTicketRepository{
		TicketRepository: inner,
		byNumber:         expirable.NewLRU[string, domain.Ticket](size, nil, ttl),
	}
}

func (r *cachedTicketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	if cached, ok := r.byNumber.Get(number); ok {
		return &cached, nil
	}
	ticket, err := r.TicketRepository.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	r.byNumber.Add(number, *ticket)
	return ticket, nil
}

func (r *cachedTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.byNumber.Remove(ticket.TicketNumber)
	if err := r.TicketRepository.Update(ctx, ticket); err != nil {
		return err
	}
	r.byNumber.Remove(ticket.TicketNumber)
	return nil
}
