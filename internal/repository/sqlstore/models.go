package sqlstore

import (
	"time"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

// conversationModel mirrors the conversations table. Responses is a JSON object.
type conversationModel struct {
	ID            string    `gorm:"primaryKey;size:36"`
	UserID        string    `gorm:"size:128;not null"`
	UserName      string    `gorm:"size:255"`
	SessionID     string    `gorm:"size:36"`
	State         string    `gorm:"size:32;not null;index"`
	RequestType   string    `gorm:"size:32"`
	QuestionIndex int       `gorm:"not null;default:0"`
	Responses     string    `gorm:"type:text"`
	Summary       string    `gorm:"type:text"`
	Priority      string    `gorm:"size:4"`
	Difficulty    string    `gorm:"size:16"`
	TicketNumber  string    `gorm:"size:16"`
	CreatedAt     time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false;index"`
}

func (conversationModel) TableName() string { return "conversations" }

type ticketModel struct {
	ID                 string     `gorm:"primaryKey;size:36"`
	TicketNumber       string     `gorm:"size:16;not null;uniqueIndex"`
	ConversationID     string     `gorm:"size:36;not null;uniqueIndex"`
	CreatedDate        time.Time  `gorm:"autoCreateTime:false;index"`
	RequesterName      string     `gorm:"size:255"`
	RequesterID        string     `gorm:"size:128;index"`
	RequestType        string     `gorm:"size:64"`
	Summary            string     `gorm:"type:text"`
	Impact             string     `gorm:"type:text"`
	Priority           string     `gorm:"size:4"`
	Difficulty         string     `gorm:"size:16"`
	Status             string     `gorm:"size:32;not null;default:New;index"`
	TicketOwner        *string    `gorm:"size:255"`
	EstimatedStartDate *time.Time `gorm:"type:date"`
	EstimatedEndDate   *time.Time `gorm:"type:date"`
	Links              string     `gorm:"type:text"`
	RawConversation    string     `gorm:"type:text"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime:false"`
}

func (ticketModel) TableName() string { return "tickets" }

type ticketHistoryModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TicketID  string    `gorm:"size:36;not null;index"`
	ChangedBy string    `gorm:"size:128"`
	Field     string    `gorm:"size:32;not null"`
	OldValue  string    `gorm:"type:text"`
	NewValue  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (ticketHistoryModel) TableName() string { return "ticket_history" }

type knowledgeModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Title     string    `gorm:"size:255"`
	Content   string    `gorm:"type:text"`
	Keywords  string    `gorm:"type:text"`
	Category  string    `gorm:"size:64"`
	Position  int       `gorm:"not null;default:0;index"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (knowledgeModel) TableName() string { return "knowledge_base" }

func toTicketModel(t *domain.Ticket) ticketModel {
	return ticketModel{
		ID:                 t.ID,
		TicketNumber:       t.TicketNumber,
		ConversationID:     t.ConversationID,
		CreatedDate:        t.CreatedDate,
		RequesterName:      t.RequesterName,
		RequesterID:        t.RequesterID,
		RequestType:        t.RequestType,
		Summary:            t.Summary,
		Impact:             t.Impact,
		Priority:           string(t.Priority),
		Difficulty:         string(t.Difficulty),
		Status:             string(t.Status),
		TicketOwner:        t.TicketOwner,
		EstimatedStartDate: t.EstimatedStartDate,
		EstimatedEndDate:   t.EstimatedEndDate,
		Links:              t.Links,
		RawConversation:    t.RawConversation,
		UpdatedAt:          t.UpdatedAt,
	}
}

func (m ticketModel) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:                 m.ID,
		TicketNumber:       m.TicketNumber,
		ConversationID:     m.ConversationID,
		CreatedDate:        m.CreatedDate,
		RequesterName:      m.RequesterName,
		RequesterID:        m.RequesterID,
		RequestType:        m.RequestType,
		Summary:            m.Summary,
		Impact:             m.Impact,
		Priority:           domain.Priority(m.Priority),
		Difficulty:         domain.Difficulty(m.Difficulty),
		Status:             domain.TicketStatus(m.Status),
		TicketOwner:        m.TicketOwner,
		EstimatedStartDate: m.EstimatedStartDate,
		EstimatedEndDate:   m.EstimatedEndDate,
		Links:              m.Links,
		RawConversation:    m.RawConversation,
		UpdatedAt:          m.UpdatedAt,
	}
}
