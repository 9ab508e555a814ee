package dto

import (
	"time"

	"github.com/spec-kit/bi-triage-agent/internal/catalog"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

// StartConversationRequest payload.
type StartConversationRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// SelectTypeRequest payload.
type SelectTypeRequest struct {
	ConversationID string `json:"conversationId"`
	RequestType    string `json:"requestType"`
}

// RespondRequest payload.
type RespondRequest struct {
	ConversationID string `json:"conversationId"`
	Response       string `json:"response"`
}

// ImpactTimelineRequest payload.
type ImpactTimelineRequest struct {
	ConversationID string                `json:"conversationId"`
	Responses      domain.ImpactTimeline `json:"responses"`
}

// ConfirmRequest payload. Confirmed is a pointer so a missing field is rejected.
type ConfirmRequest struct {
	ConversationID string `json:"conversationId"`
	Confirmed      *bool  `json:"confirmed"`
}

// StartConversationResponse is returned by POST /api/conversation/start.
type StartConversationResponse struct {
	ConversationID string               `json:"conversationId"`
	SessionID      string               `json:"sessionId"`
	Message        string               `json:"message"`
	RequestTypes   []catalog.TypeOption `json:"requestTypes"`
	CurrentStep    string               `json:"currentStep"`
}

// QuestionResponse carries either the next detail question or, once they are
// exhausted, the impact/timeline prompt set.
type QuestionResponse struct {
	Message        string   `json:"message"`
	Question       string   `json:"question,omitempty"`
	QuestionIndex  *int     `json:"questionIndex,omitempty"`
	TotalQuestions *int     `json:"totalQuestions,omitempty"`
	Questions      []string `json:"questions,omitempty"`
	CurrentStep    string   `json:"currentStep"`
}

// SummaryView is the confirmation card.
type SummaryView struct {
	RequestType  string            `json:"requestType"`
	Summary      string            `json:"summary"`
	Priority     domain.Priority   `json:"priority"`
	Difficulty   domain.Difficulty `json:"difficulty"`
	Impact       string            `json:"impact"`
	Timeline     string            `json:"timeline"`
	Frequency    string            `json:"frequency"`
	Requirements string            `json:"requirements"`
	Links        string            `json:"links"`
}

// SummaryResponse is returned by POST /api/conversation/impact-timeline.
type SummaryResponse struct {
	Message     string      `json:"message"`
	Summary     SummaryView `json:"summary"`
	CurrentStep string      `json:"currentStep"`
}

// CreatedTicket is the short ticket card shown on completion.
type CreatedTicket struct {
	TicketNumber string              `json:"ticketNumber"`
	Status       domain.TicketStatus `json:"status"`
	Priority     domain.Priority     `json:"priority"`
	Difficulty   domain.Difficulty   `json:"difficulty"`
}

// Suggestion is a knowledge base article offered on completion.
type Suggestion struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// ConfirmResponse is returned by POST /api/conversation/confirm. Ticket is
// absent when the summary was rejected.
type ConfirmResponse struct {
	Message     string         `json:"message"`
	Ticket      *CreatedTicket `json:"ticket,omitempty"`
	Duplicates  int            `json:"duplicates"`
	Suggestions []Suggestion   `json:"suggestions,omitempty"`
	CurrentStep string         `json:"currentStep"`
}

// ConversationResponse lets a client resume a dialogue.
type ConversationResponse struct {
	ConversationID string            `json:"conversationId"`
	SessionID      string            `json:"sessionId"`
	UserID         string            `json:"userId"`
	UserName       string            `json:"userName"`
	CurrentStep    string            `json:"currentStep"`
	RequestType    string            `json:"requestType,omitempty"`
	QuestionIndex  int               `json:"questionIndex"`
	Responses      map[string]string `json:"responses"`
	Summary        string            `json:"summary,omitempty"`
	Priority       domain.Priority   `json:"priority,omitempty"`
	Difficulty     domain.Difficulty `json:"difficulty,omitempty"`
	TicketNumber   string            `json:"ticketNumber,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}
