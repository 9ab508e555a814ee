package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresStore wires every repository to the same pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Conversations: NewConversationRepository(pool),
		Tickets:       NewTicketRepository(pool),
		History:       NewTicketHistoryRepository(pool),
		Knowledge:     NewKnowledgeBaseRepository(pool),
		Ping: func(ctx context.Context) error {
			if pool == nil {
				return errors.New("postgres pool not configured")
			}
			return pool.Ping(ctx)
		},
	}
}
