package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/events"
	"github.com/spec-kit/bi-triage-agent/internal/locking"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

// TicketService coordinates ticket lookups and administrative workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	locker     locking.Locker
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Locker      locking.Locker
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	svc := &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		locker:     deps.Locker,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.locker == nil {
		svc.locker = locking.NewLocal(0)
	}
	return svc
}

// GetTicket looks a ticket up by its human-facing number.
func (s *TicketService) GetTicket(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	ticketNumber = strings.ToUpper(strings.TrimSpace(ticketNumber))
	ticket, err := s.tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		return nil, s.mapLookupError(err, ticketNumber)
	}
	return ticket, nil
}

// ListTickets returns tickets newest first for the admin table.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": status})
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperrors.NewValidationError("limit and offset must not be negative", nil)
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		s.logger.Error("list tickets", zap.Error(err))
		return nil, apperrors.NewStorageError("list tickets", err)
	}
	return tickets, nil
}

// Stats computes the admin dashboard counters.
func (s *TicketService) Stats(ctx context.Context) (*domain.TicketStats, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		s.logger.Error("list tickets for stats", zap.Error(err))
		return nil, apperrors.NewStorageError("list tickets", err)
	}

	stats := &domain.TicketStats{Total: len(tickets)}
	for _, t := range tickets {
		switch t.Status {
		case domain.TicketStatusNew:
			stats.New++
		case domain.TicketStatusInProgress:
			stats.InProgress++
		case domain.TicketStatusCompleted, domain.TicketStatusClosed:
			stats.Completed++
		}
		if t.Priority == domain.PriorityP0 || t.Priority == domain.PriorityP1 {
			stats.HighPriority++
		}
	}
	return stats, nil
}

// UpdateTicket applies an administrator update. Nil fields keep their stored
// value. One history entry is written per field whose value changed.
// Updates to one ticket are serialized so concurrent edits of different
// fields all land.
func (s *TicketService) UpdateTicket(ctx context.Context, id, actor string, update domain.TicketUpdate) (*domain.Ticket, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": *update.Status})
	}
	if update.TicketOwner != nil {
		owner := strings.TrimSpace(*update.TicketOwner)
		update.TicketOwner = &owner
	}

	unlock, err := s.locker.Lock(ctx, ticketLockKey(id))
	if err != nil {
		if errors.Is(err, locking.ErrBusy) {
			return nil, apperrors.NewTicketBusy(id)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("acquire ticket lock", zap.String("ticket_id", id), zap.Error(err))
		return nil, apperrors.NewStorageError("lock ticket", err)
	}
	defer unlock()

	current, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}

	next := *current
	update.Apply(&next)
	if next.EstimatedStartDate != nil && next.EstimatedEndDate != nil &&
		next.EstimatedEndDate.Before(*next.EstimatedStartDate) {
		return nil, apperrors.NewValidationError("estimated_end_date must not be before estimated_start_date", map[string]any{
			"estimated_start_date": next.EstimatedStartDate.Format(dateLayout),
			"estimated_end_date":   next.EstimatedEndDate.Format(dateLayout),
		})
	}

	now := s.now().UTC()
	changes := diffTicket(current, &next, actor, now)
	if len(changes) == 0 {
		return current, nil
	}

	next.UpdatedAt = now
	if err := s.tickets.Update(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewTicketNotFound(id)
		}
		s.logger.Error("update ticket", zap.String("ticket_id", id), zap.Error(err))
		return nil, apperrors.NewStorageError("update ticket", err)
	}

	for i := range changes {
		if err := s.history.Create(ctx, &changes[i]); err != nil {
			s.logger.Error("record ticket history", zap.String("ticket_id", id), zap.Error(err))
			return nil, apperrors.NewStorageError("record ticket history", err)
		}
	}

	s.logger.Info("ticket updated",
		zap.String("ticket_number", next.TicketNumber),
		zap.String("actor", actor),
		zap.Int("changes", len(changes)))

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketUpdated,
			TicketID:  next.ID,
			Actor:     actor,
			Timestamp: now,
			Payload: events.TicketUpdatedPayload{
				TicketNumber: next.TicketNumber,
				Changes:      changes,
			},
		})
	}
	return &next, nil
}

// History returns the audit trail of one ticket, oldest first.
func (s *TicketService) History(ctx context.Context, id string) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.GetByID(ctx, id); err != nil {
		return nil, s.mapLookupError(err, id)
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		s.logger.Error("list ticket history", zap.String("ticket_id", id), zap.Error(err))
		return nil, apperrors.NewStorageError("list ticket history", err)
	}
	return entries, nil
}

func (s *TicketService) mapLookupError(err error, key string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewTicketNotFound(key)
	}
	s.logger.Error("load ticket", zap.String("ticket", key), zap.Error(err))
	return apperrors.NewStorageError("load ticket", err)
}

func diffTicket(before, after *domain.Ticket, actor string, at time.Time) []domain.TicketHistory {
	var changes []domain.TicketHistory
	record := func(field domain.TicketField, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		changes = append(changes, domain.TicketHistory{
			ID:        uuid.NewString(),
			TicketID:  before.ID,
			ChangedBy: actor,
			Field:     field,
			OldValue:  oldValue,
			NewValue:  newValue,
			CreatedAt: at,
		})
	}

	record(domain.FieldStatus, string(before.Status), string(after.Status))
	record(domain.FieldTicketOwner, derefString(before.TicketOwner), derefString(after.TicketOwner))
	record(domain.FieldEstimatedStartDate, formatDate(before.EstimatedStartDate), formatDate(after.EstimatedStartDate))
	record(domain.FieldEstimatedEndDate, formatDate(before.EstimatedEndDate), formatDate(after.EstimatedEndDate))
	return changes
}

func ticketLockKey(id string) string {
	return "ticket:" + id
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
