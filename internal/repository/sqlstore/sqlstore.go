// Package sqlstore implements the repositories on gorm, for the sqlite and
// mysql store drivers.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
)

// Migrate creates or alters the tables used by the store.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&conversationModel{},
		&ticketModel{},
		&ticketHistoryModel{},
		&knowledgeModel{},
	); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

// New wires every repository to db. The connection must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Conversations: &conversationRepository{db: db},
		Tickets:       &ticketRepository{db: db},
		History:       &historyRepository{db: db},
		Knowledge:     &knowledgeRepository{db: db},
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}

type conversationRepository struct {
	db *gorm.DB
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var m conversationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, translate(err)
	}
	conv := &domain.Conversation{
		ID:            m.ID,
		UserID:        m.UserID,
		UserName:      m.UserName,
		SessionID:     m.SessionID,
		State:         domain.ConversationState(m.State),
		RequestType:   m.RequestType,
		QuestionIndex: m.QuestionIndex,
		Responses:     map[string]string{},
		Summary:       m.Summary,
		Priority:      domain.Priority(m.Priority),
		Difficulty:    domain.Difficulty(m.Difficulty),
		TicketNumber:  m.TicketNumber,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Responses != "" {
		if err := json.Unmarshal([]byte(m.Responses), &conv.Responses); err != nil {
			return nil, fmt.Errorf("sqlstore: decode responses of %s: %w", id, err)
		}
	}
	return conv, nil
}

func (r *conversationRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	responses, err := json.Marshal(conv.Responses)
	if err != nil {
		return fmt.Errorf("sqlstore: encode responses of %s: %w", conv.ID, err)
	}
	m := conversationModel{
		ID:            conv.ID,
		UserID:        conv.UserID,
		UserName:      conv.UserName,
		SessionID:     conv.SessionID,
		State:         string(conv.State),
		RequestType:   conv.RequestType,
		QuestionIndex: conv.QuestionIndex,
		Responses:     string(responses),
		Summary:       conv.Summary,
		Priority:      string(conv.Priority),
		Difficulty:    string(conv.Difficulty),
		TicketNumber:  conv.TicketNumber,
		CreatedAt:     conv.CreatedAt,
		UpdatedAt:     conv.UpdatedAt,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
	return translate(err)
}

func (r *conversationRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("updated_at < ? AND state <> ?", before, string(domain.StateCompleted)).
		Delete(&conversationModel{})
	return res.RowsAffected, translate(res.Error)
}

type ticketRepository struct {
	db *gorm.DB
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	m := toTicketModel(ticket)
	return translate(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.take(ctx, "id = ?", id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return r.take(ctx, "ticket_number = ?", number)
}

func (r *ticketRepository) GetByConversationID(ctx context.Context, conversationID string) (*domain.Ticket, error) {
	return r.take(ctx, "conversation_id = ?", conversationID)
}

func (r *ticketRepository) take(ctx context.Context, where string, arg any) (*domain.Ticket, error) {
	var m ticketModel
	if err := r.db.WithContext(ctx).Where(where, arg).Take(&m).Error; err != nil {
		return nil, translate(err)
	}
	t := m.toDomain()
	return &t, nil
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	var models []ticketModel
	err := r.db.WithContext(ctx).
		Where("status <> ?", string(domain.TicketStatusClosed)).
		Order("created_date ASC").Order("ticket_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, translate(err)
	}
	return toTickets(models), nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	q := r.db.WithContext(ctx).Model(&ticketModel{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	q = q.Order("created_date DESC").Order("ticket_number DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	var models []ticketModel
	if err := q.Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	return toTickets(models), nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	res := r.db.WithContext(ctx).Model(&ticketModel{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]any{
			"status":               string(ticket.Status),
			"ticket_owner":         ticket.TicketOwner,
			"estimated_start_date": ticket.EstimatedStartDate,
			"estimated_end_date":   ticket.EstimatedEndDate,
			"updated_at":           ticket.UpdatedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func toTickets(models []ticketModel) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out
}

type historyRepository struct {
	db *gorm.DB
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	m := ticketHistoryModel{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		ChangedBy: entry.ChangedBy,
		Field:     string(entry.Field),
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		CreatedAt: entry.CreatedAt,
	}
	return translate(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var models []ticketHistoryModel
	if err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]domain.TicketHistory, 0, len(models))
	for _, m := range models {
		out = append(out, domain.TicketHistory{
			ID:        m.ID,
			TicketID:  m.TicketID,
			ChangedBy: m.ChangedBy,
			Field:     domain.TicketField(m.Field),
			OldValue:  m.OldValue,
			NewValue:  m.NewValue,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

type knowledgeRepository struct {
	db *gorm.DB
}

func (r *knowledgeRepository) List(ctx context.Context) ([]domain.KnowledgeBaseEntry, error) {
	var models []knowledgeModel
	if err := r.db.WithContext(ctx).Order("position ASC").Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]domain.KnowledgeBaseEntry, 0, len(models))
	for _, m := range models {
		out = append(out, domain.KnowledgeBaseEntry{
			ID:        m.ID,
			Title:     m.Title,
			Content:   m.Content,
			Keywords:  m.Keywords,
			Category:  m.Category,
			Position:  m.Position,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func (r *knowledgeRepository) Upsert(ctx context.Context, entry *domain.KnowledgeBaseEntry) error {
	m := knowledgeModel{
		ID:        entry.ID,
		Title:     entry.Title,
		Content:   entry.Content,
		Keywords:  entry.Keywords,
		Category:  entry.Category,
		Position:  entry.Position,
		CreatedAt: entry.CreatedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "keywords", "category", "position"}),
	}).Create(&m).Error
	return translate(err)
}
