package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

const ticketColumns = `id, ticket_number, conversation_id, created_date, requester_name, requester_id,
               request_type, summary, impact, priority, difficulty, status, ticket_owner,
               estimated_start_date, estimated_end_date, links, raw_conversation, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, ticket_number, conversation_id, created_date, requester_name, requester_id,
            request_type, summary, impact, priority, difficulty, status, ticket_owner,
            estimated_start_date, estimated_end_date, links, raw_conversation, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.TicketNumber,
		ticket.ConversationID,
		ticket.CreatedDate,
		ticket.RequesterName,
		ticket.RequesterID,
		ticket.RequestType,
		ticket.Summary,
		ticket.Impact,
		ticket.Priority,
		ticket.Difficulty,
		ticket.Status,
		ticket.TicketOwner,
		ticket.EstimatedStartDate,
		ticket.EstimatedEndDate,
		ticket.Links,
		ticket.RawConversation,
		ticket.UpdatedAt,
	)
	return translatePgError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, ticket_owner=$2, estimated_start_date=$3, estimated_end_date=$4, updated_at=$5
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.TicketOwner,
		ticket.EstimatedStartDate,
		ticket.EstimatedEndDate,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_number=$1`, number)
}

func (r *ticketRepository) GetByConversationID(ctx context.Context, conversationID string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE conversation_id=$1`, conversationID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrNotFound
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE status <> $1 ORDER BY created_date ASC`,
		domain.TicketStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_date DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.ConversationID,
			&ticket.CreatedDate,
			&ticket.RequesterName,
			&ticket.RequesterID,
			&ticket.RequestType,
			&ticket.Summary,
			&ticket.Impact,
			&ticket.Priority,
			&ticket.Difficulty,
			&ticket.Status,
			&ticket.TicketOwner,
			&ticket.EstimatedStartDate,
			&ticket.EstimatedEndDate,
			&ticket.Links,
			&ticket.RawConversation,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// translatePgError maps driver errors onto the repository sentinels.
func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
