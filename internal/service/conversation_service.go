package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/catalog"
	"github.com/spec-kit/bi-triage-agent/internal/classify"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/events"
	"github.com/spec-kit/bi-triage-agent/internal/locking"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

const (
	msgSelectedType   = "Great! You've selected %s. Let me ask you a few questions to better understand your needs."
	msgNextQuestion   = "Thank you for that information!"
	msgImpactTimeline = "Perfect! Now I need to understand the business impact and timeline."
	msgSummary        = "Thank you! I've analyzed your request and prepared a summary. Please review and confirm:"
	msgRestart        = "No problem! You can restart the conversation or make changes. What would you like to do?"
)

// ConversationService drives the intake state machine. Every transition runs
// under a per-conversation lock against a copy of the stored conversation; the
// copy becomes the system of record only once Save succeeds.
type ConversationService struct {
	conversations repository.ConversationRepository
	tickets       repository.TicketRepository
	knowledge     repository.KnowledgeBaseRepository
	factory       *TicketFactory
	locker        locking.Locker
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// ConversationDependencies bundles collaborators for the conversation service.
type ConversationDependencies struct {
	Conversations repository.ConversationRepository
	Tickets       repository.TicketRepository
	Knowledge     repository.KnowledgeBaseRepository
	Factory       *TicketFactory
	Locker        locking.Locker
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	svc := &ConversationService{
		conversations: deps.Conversations,
		tickets:       deps.Tickets,
		knowledge:     deps.Knowledge,
		factory:       deps.Factory,
		locker:        deps.Locker,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		now:           deps.Now,
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
	if svc.factory == nil {
		svc.factory = NewTicketFactory(deps.Tickets, nil, svc.logger, svc.now)
	}
	return svc
}

// StartResult is returned when a dialogue begins.
type StartResult struct {
	Conversation *domain.Conversation
	Message      string
	RequestTypes []catalog.TypeOption
}

// QuestionResult is returned by SelectType and Respond. When the detail
// questions are exhausted Questions holds the impact/timeline prompt set and
// Question is empty.
type QuestionResult struct {
	Conversation   *domain.Conversation
	Message        string
	Question       string
	QuestionIndex  int
	TotalQuestions int
	Questions      []string
}

// SummaryResult is the confirmation view produced after classification.
type SummaryResult struct {
	Conversation    *domain.Conversation
	Message         string
	RequestTypeName string
	Answers         domain.ImpactTimeline
}

// ConfirmResult is returned by Confirm. Ticket is nil on rejection.
type ConfirmResult struct {
	Conversation *domain.Conversation
	Message      string
	Ticket       *domain.Ticket
	Duplicates   []domain.Ticket
	Suggestions  []domain.KnowledgeBaseEntry
}

// Start opens a new conversation in request_type_selection.
func (s *ConversationService) Start(ctx context.Context, userID, userName string) (*StartResult, error) {
	userID = strings.TrimSpace(userID)
	userName = strings.TrimSpace(userName)
	if userID == "" || userName == "" {
		return nil, apperrors.NewValidationError("userId and userName are required", map[string]any{
			"userId":   userID == "",
			"userName": userName == "",
		})
	}

	now := s.now().UTC()
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		SessionID: uuid.NewString(),
		State:     domain.StateRequestTypeSelection,
		Responses: map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.Save(ctx, conv); err != nil {
		s.logger.Error("save new conversation", zap.Error(err))
		return nil, apperrors.NewStorageError("save conversation", err)
	}

	s.metrics.Inc(observability.CounterConversationsStarted, 1)
	s.logger.Debug("conversation started", zap.String("conversation_id", conv.ID), zap.String("user_id", userID))

	return &StartResult{
		Conversation: conv,
		Message: fmt.Sprintf("Hi %s! I'm your BI Triage Agent. I'm here to help you submit a well-structured BI request. "+
			"Let's start by selecting the type of request you need help with:", userName),
		RequestTypes: catalog.Types(),
	}, nil
}

// SelectType records the request type and asks the first detail question.
func (s *ConversationService) SelectType(ctx context.Context, id, requestType string) (*QuestionResult, error) {
	var rt catalog.RequestType
	conv, err := s.transition(ctx, id, "select a request type", domain.StateRequestTypeSelection, func(conv *domain.Conversation) error {
		var ok bool
		rt, ok = catalog.Lookup(strings.TrimSpace(requestType))
		if !ok {
			return apperrors.NewValidationError("unknown request type", map[string]any{
				"requestType": requestType,
				"allowed":     catalog.Types(),
			})
		}
		conv.RequestType = rt.ID
		conv.QuestionIndex = 0
		conv.State = domain.StateCollectingDetails
		return nil
	})
	if err != nil {
		return nil, err
	}

	question, _ := rt.Question(0)
	return &QuestionResult{
		Conversation:   conv,
		Message:        fmt.Sprintf(msgSelectedType, rt.Name),
		Question:       question,
		QuestionIndex:  0,
		TotalQuestions: rt.TotalQuestions(),
	}, nil
}

// Respond stores the answer to the current detail question and advances.
func (s *ConversationService) Respond(ctx context.Context, id, answer string) (*QuestionResult, error) {
	var rt catalog.RequestType
	conv, err := s.transition(ctx, id, "answer a question", domain.StateCollectingDetails, func(conv *domain.Conversation) error {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return apperrors.NewValidationError("response is required", map[string]any{
				"questionIndex": conv.QuestionIndex,
			})
		}
		var ok bool
		rt, ok = catalog.Lookup(conv.RequestType)
		if !ok {
			return apperrors.NewInternalError(fmt.Errorf("conversation %s has unknown request type %q", conv.ID, conv.RequestType))
		}

		conv.Responses[fmt.Sprintf("question_%d", conv.QuestionIndex)] = answer
		if conv.QuestionIndex+1 < rt.TotalQuestions() {
			conv.QuestionIndex++
			return nil
		}
		conv.State = domain.StateImpactTimeline
		return nil
	})
	if err != nil {
		return nil, err
	}

	if conv.State == domain.StateImpactTimeline {
		return &QuestionResult{
			Conversation:   conv,
			Message:        msgImpactTimeline,
			QuestionIndex:  conv.QuestionIndex,
			TotalQuestions: rt.TotalQuestions(),
			Questions:      catalog.ImpactTimelineQuestions(),
		}, nil
	}

	question, _ := rt.Question(conv.QuestionIndex)
	return &QuestionResult{
		Conversation:   conv,
		Message:        msgNextQuestion,
		Question:       question,
		QuestionIndex:  conv.QuestionIndex,
		TotalQuestions: rt.TotalQuestions(),
	}, nil
}

// SubmitImpactTimeline merges the impact/timeline batch, classifies the
// request and moves to confirmation.
func (s *ConversationService) SubmitImpactTimeline(ctx context.Context, id string, answers domain.ImpactTimeline) (*SummaryResult, error) {
	answers = trimImpactTimeline(answers)
	var rt catalog.RequestType

	conv, err := s.transition(ctx, id, "submit impact and timeline", domain.StateImpactTimeline, func(conv *domain.Conversation) error {
		missing := map[string]any{}
		if answers.Impact == "" {
			missing[domain.SlotImpact] = "required"
		}
		if answers.Timeline == "" {
			missing[domain.SlotTimeline] = "required"
		}
		if len(missing) > 0 {
			return apperrors.NewValidationError("impact and timeline are required", missing)
		}

		var ok bool
		rt, ok = catalog.Lookup(conv.RequestType)
		if !ok {
			return apperrors.NewInternalError(fmt.Errorf("conversation %s has unknown request type %q", conv.ID, conv.RequestType))
		}

		conv.Responses[domain.SlotImpact] = answers.Impact
		conv.Responses[domain.SlotTimeline] = answers.Timeline
		conv.Responses[domain.SlotFrequency] = answers.Frequency
		conv.Responses[domain.SlotRequirements] = answers.Requirements
		conv.Responses[domain.SlotLinks] = answers.Links

		result := classify.Classify(rt.Name, summaryInput(conv.Responses))
		conv.Summary = result.Summary
		conv.Priority = result.Priority
		conv.Difficulty = result.Difficulty
		conv.State = domain.StateConfirmation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("conversation classified",
		zap.String("conversation_id", conv.ID),
		zap.String("priority", string(conv.Priority)),
		zap.String("difficulty", string(conv.Difficulty)))

	return &SummaryResult{
		Conversation:    conv,
		Message:         msgSummary,
		RequestTypeName: rt.Name,
		Answers:         answers,
	}, nil
}

// Confirm accepts or rejects the summary. Acceptance creates the ticket.
func (s *ConversationService) Confirm(ctx context.Context, id string, accepted bool) (*ConfirmResult, error) {
	if !accepted {
		conv, err := s.transition(ctx, id, "confirm", domain.StateConfirmation, func(conv *domain.Conversation) error {
			conv.State = domain.StateRestartOption
			conv.Summary = ""
			conv.Priority = ""
			conv.Difficulty = ""
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.metrics.Inc(observability.CounterConversationsRejected, 1)
		s.publish(ctx, events.Event{
			Type:           events.EventConversationRejected,
			ConversationID: conv.ID,
			Actor:          conv.UserID,
			Payload: events.ConversationRejectedPayload{
				UserID:      conv.UserID,
				RequestType: conv.RequestType,
			},
		})
		return &ConfirmResult{Conversation: conv, Message: msgRestart}, nil
	}

	var (
		ticket      *domain.Ticket
		duplicates  []domain.Ticket
		suggestions []domain.KnowledgeBaseEntry
	)
	conv, err := s.transition(ctx, id, "confirm", domain.StateConfirmation, func(conv *domain.Conversation) error {
		open, err := s.tickets.ListOpen(ctx)
		if err != nil {
			return apperrors.NewStorageError("list open tickets", err)
		}
		duplicates = classify.DetectDuplicates(conv.Summary, excludeConversation(open, conv.ID))

		entries, err := s.knowledge.List(ctx)
		if err != nil {
			return apperrors.NewStorageError("list knowledge base", err)
		}
		suggestions = classify.SuggestKnowledgeBase(conv.Summary, entries)

		ticket, err = s.factory.Create(ctx, conv)
		if err != nil {
			return err
		}
		conv.TicketNumber = ticket.TicketNumber
		conv.State = domain.StateCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Inc(observability.CounterTicketsCreated, 1)
	if len(duplicates) > 0 {
		s.metrics.Inc(observability.CounterDuplicatesFlagged, int64(len(duplicates)))
	}
	s.publish(ctx, events.Event{
		Type:           events.EventTicketCreated,
		TicketID:       ticket.ID,
		ConversationID: conv.ID,
		Actor:          conv.UserID,
		Payload: events.TicketCreatedPayload{
			TicketNumber:  ticket.TicketNumber,
			RequesterName: ticket.RequesterName,
			RequestType:   ticket.RequestType,
			Summary:       ticket.Summary,
			Priority:      ticket.Priority,
			Difficulty:    ticket.Difficulty,
			Duplicates:    len(duplicates),
		},
	})

	return &ConfirmResult{
		Conversation: conv,
		Message:      completionMessage(ticket, len(duplicates)),
		Ticket:       ticket,
		Duplicates:   duplicates,
		Suggestions:  suggestions,
	}, nil
}

// Get returns the stored conversation so a client can resume.
func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.load(ctx, id)
}

// PurgeStale removes unfinished conversations idle for longer than maxAge.
// Completed conversations are kept because tickets reference them.
func (s *ConversationService) PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, apperrors.NewValidationError("max age must be positive", nil)
	}
	removed, err := s.conversations.DeleteStale(ctx, s.now().UTC().Add(-maxAge))
	if err != nil {
		return 0, apperrors.NewStorageError("delete stale conversations", err)
	}
	s.metrics.Inc(observability.CounterConversationsSwept, removed)
	return removed, nil
}

func (s *ConversationService) transition(
	ctx context.Context,
	id, event string,
	required domain.ConversationState,
	apply func(conv *domain.Conversation) error,
) (*domain.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewValidationError("conversationId is required", nil)
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, locking.ErrBusy) {
			return nil, apperrors.NewConversationBusy(id)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("acquire conversation lock", zap.String("conversation_id", id), zap.Error(err))
		return nil, apperrors.NewStorageError("lock conversation", err)
	}
	defer unlock()

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.State != required {
		return nil, apperrors.NewInvalidStateTransition(event, string(current.State))
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.conversations.Save(ctx, next); err != nil {
		s.logger.Error("save conversation", zap.String("conversation_id", id), zap.Error(err))
		return nil, apperrors.NewStorageError("save conversation", err)
	}

	s.logger.Debug("conversation transition",
		zap.String("conversation_id", id),
		zap.String("from", string(current.State)),
		zap.String("to", string(next.State)))
	return next, nil
}

func (s *ConversationService) load(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewConversationNotFound(id)
		}
		s.logger.Error("load conversation", zap.String("conversation_id", id), zap.Error(err))
		return nil, apperrors.NewStorageError("load conversation", err)
	}
	return conv, nil
}

func (s *ConversationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}

// summaryInput exposes the first detail answer as the description slot when
// none was given explicitly.
func summaryInput(responses map[string]string) map[string]string {
	out := make(map[string]string, len(responses)+1)
	for k, v := range responses {
		out[k] = v
	}
	if strings.TrimSpace(out[domain.SlotDescription]) == "" {
		if first := out["question_0"]; first != "" {
			out[domain.SlotDescription] = first
		}
	}
	return out
}

func excludeConversation(tickets []domain.Ticket, conversationID string) []domain.Ticket {
	out := tickets[:0:0]
	for _, t := range tickets {
		if t.ConversationID != conversationID {
			out = append(out, t)
		}
	}
	return out
}

func trimImpactTimeline(a domain.ImpactTimeline) domain.ImpactTimeline {
	return domain.ImpactTimeline{
		Impact:       strings.TrimSpace(a.Impact),
		Timeline:     strings.TrimSpace(a.Timeline),
		Frequency:    strings.TrimSpace(a.Frequency),
		Requirements: strings.TrimSpace(a.Requirements),
		Links:        strings.TrimSpace(a.Links),
	}
}

func completionMessage(ticket *domain.Ticket, duplicates int) string {
	var b strings.Builder
	b.WriteString("Perfect! Your ticket has been created successfully.\n\n")
	fmt.Fprintf(&b, "**Ticket Number:** %s\n", ticket.TicketNumber)
	fmt.Fprintf(&b, "**Status:** %s\n", ticket.Status)
	fmt.Fprintf(&b, "**Priority:** %s\n", ticket.Priority)
	fmt.Fprintf(&b, "**Estimated Difficulty:** %s\n\n", ticket.Difficulty)
	fmt.Fprintf(&b, "Your request has been submitted to the BI team. You can check the status anytime by asking me about ticket %s.", ticket.TicketNumber)
	if duplicates > 0 {
		fmt.Fprintf(&b, "\n\n⚠️ **Note:** I found %d similar ticket(s) that might be related to your request. "+
			"The BI team will review these for potential consolidation.", duplicates)
	}
	return b.String()
}
