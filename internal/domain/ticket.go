package domain

import "time"

// TicketStatus enumerates lifecycle states managed by administrators.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "New"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusOnHold     TicketStatus = "On Hold"
	TicketStatusCompleted  TicketStatus = "Completed"
	TicketStatusClosed     TicketStatus = "Closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusOnHold, TicketStatusCompleted, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is the durable record produced by a confirmed conversation.
type Ticket struct {
	ID                 string
	TicketNumber       string
	ConversationID     string
	CreatedDate        time.Time
	RequesterName      string
	RequesterID        string
	RequestType        string
	Summary            string
	Impact             string
	Priority           Priority
	Difficulty         Difficulty
	Status             TicketStatus
	TicketOwner        *string
	EstimatedStartDate *time.Time
	EstimatedEndDate   *time.Time
	Links              string
	RawConversation    string
	UpdatedAt          time.Time
}

// TicketUpdate holds the administrator-assignable fields. Nil leaves a field unchanged.
type TicketUpdate struct {
	Status             *TicketStatus
	TicketOwner        *string
	EstimatedStartDate *time.Time
	EstimatedEndDate   *time.Time
}

// Empty reports whether the update changes nothing.
func (u TicketUpdate) Empty() bool {
	return u.Status == nil && u.TicketOwner == nil && u.EstimatedStartDate == nil && u.EstimatedEndDate == nil
}

// Apply copies the non-nil fields onto t.
func (u TicketUpdate) Apply(t *Ticket) {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.TicketOwner != nil {
		owner := *u.TicketOwner
		t.TicketOwner = &owner
	}
	if u.EstimatedStartDate != nil {
		start := *u.EstimatedStartDate
		t.EstimatedStartDate = &start
	}
	if u.EstimatedEndDate != nil {
		end := *u.EstimatedEndDate
		t.EstimatedEndDate = &end
	}
}

// TicketStats summarizes the ticket table for the admin dashboard.
type TicketStats struct {
	Total        int `json:"total"`
	New          int `json:"new"`
	InProgress   int `json:"inProgress"`
	Completed    int `json:"completed"`
	HighPriority int `json:"highPriority"`
}
