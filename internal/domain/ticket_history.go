package domain

import "time"

// TicketField names an administrator-assignable ticket column.
type TicketField string

const (
	FieldStatus             TicketField = "status"
	FieldTicketOwner        TicketField = "ticket_owner"
	FieldEstimatedStartDate TicketField = "estimated_start_date"
	FieldEstimatedEndDate   TicketField = "estimated_end_date"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID        string      `json:"id"`
	TicketID  string      `json:"ticket_id"`
	ChangedBy string      `json:"changed_by"`
	Field     TicketField `json:"field"`
	OldValue  string      `json:"old_value"`
	NewValue  string      `json:"new_value"`
	CreatedAt time.Time   `json:"created_at"`
}
