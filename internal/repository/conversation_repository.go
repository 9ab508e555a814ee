package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository instantiates the postgres conversation repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	const query = `
        SELECT id, user_id, user_name, session_id, state, request_type, question_index, responses,
               summary, priority, difficulty, ticket_number, created_at, updated_at
        FROM conversations WHERE id=$1`
	var (
		conv      domain.Conversation
		responses []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.UserName,
		&conv.SessionID,
		&conv.State,
		&conv.RequestType,
		&conv.QuestionIndex,
		&responses,
		&conv.Summary,
		&conv.Priority,
		&conv.Difficulty,
		&conv.TicketNumber,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, translatePgError(err)
	}
	conv.Responses = map[string]string{}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &conv.Responses); err != nil {
			return nil, fmt.Errorf("decode responses of %s: %w", id, err)
		}
	}
	return &conv, nil
}

func (r *conversationRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	responses, err := json.Marshal(conv.Responses)
	if err != nil {
		return fmt.Errorf("encode responses of %s: %w", conv.ID, err)
	}
	const query = `
        INSERT INTO conversations (id, user_id, user_name, session_id, state, request_type, question_index,
            responses, summary, priority, difficulty, ticket_number, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (id) DO UPDATE SET
            state=EXCLUDED.state, request_type=EXCLUDED.request_type, question_index=EXCLUDED.question_index,
            responses=EXCLUDED.responses, summary=EXCLUDED.summary, priority=EXCLUDED.priority,
            difficulty=EXCLUDED.difficulty, ticket_number=EXCLUDED.ticket_number, updated_at=EXCLUDED.updated_at`
	_, err = r.pool.Exec(ctx, query,
		conv.ID,
		conv.UserID,
		conv.UserName,
		conv.SessionID,
		conv.State,
		conv.RequestType,
		conv.QuestionIndex,
		responses,
		conv.Summary,
		conv.Priority,
		conv.Difficulty,
		conv.TicketNumber,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	return translatePgError(err)
}

func (r *conversationRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM conversations WHERE updated_at < $1 AND state <> $2`,
		before, domain.StateCompleted)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
