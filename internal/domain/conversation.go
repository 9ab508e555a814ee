package domain

import "time"

// ConversationState is the position of a dialogue in the intake flow.
type ConversationState string

const (
	StateInitial              ConversationState = "initial"
	StateRequestTypeSelection ConversationState = "request_type_selection"
	StateCollectingDetails    ConversationState = "collecting_details"
	StateImpactTimeline       ConversationState = "impact_timeline"
	StateConfirmation         ConversationState = "confirmation"
	StateCompleted            ConversationState = "completed"
	StateRestartOption        ConversationState = "restart_option"
)

// Terminal reports whether no further events are accepted in this state.
func (s ConversationState) Terminal() bool {
	return s == StateCompleted || s == StateRestartOption
}

// Response slot names filled after detail collection.
const (
	SlotImpact       = "impact"
	SlotTimeline     = "timeline"
	SlotFrequency    = "frequency"
	SlotRequirements = "requirements"
	SlotLinks        = "links"
	SlotDescription  = "description"
)

// Priority is the urgency rating produced by classification.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Difficulty is the effort rating produced by classification.
type Difficulty string

const (
	DifficultyLow    Difficulty = "Low"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHigh   Difficulty = "High"
)

// Conversation is one guided intake dialogue.
type Conversation struct {
	ID            string
	UserID        string
	UserName      string
	SessionID     string
	State         ConversationState
	RequestType   string
	QuestionIndex int
	Responses     map[string]string
	Summary       string
	Priority      Priority
	Difficulty    Difficulty
	TicketNumber  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy so a transition can be discarded if the write fails.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Responses = make(map[string]string, len(c.Responses))
	for k, v := range c.Responses {
		cp.Responses[k] = v
	}
	return &cp
}

// ImpactTimeline carries the batch of answers for the impact/timeline step.
type ImpactTimeline struct {
	Impact       string `json:"impact"`
	Timeline     string `json:"timeline"`
	Frequency    string `json:"frequency"`
	Requirements string `json:"requirements"`
	Links        string `json:"links"`
}
