package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bi-triage-agent/internal/catalog"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/events"
	"github.com/spec-kit/bi-triage-agent/internal/locking"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
	"github.com/spec-kit/bi-triage-agent/internal/repository/memstore"
	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

var ticketNumberPattern = regexp.MustCompile(`^BI-\d{6}$`)

func TestEndToEndTroubleshooting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.svc.Start(ctx, "u-42", "Dana")
	require.NoError(t, err)
	assert.Equal(t, domain.StateRequestTypeSelection, start.Conversation.State)
	assert.Contains(t, start.Message, "Hi Dana!")
	assert.Len(t, start.RequestTypes, 5)
	assert.NotEmpty(t, start.Conversation.SessionID)
	id := start.Conversation.ID

	sel, err := h.svc.SelectType(ctx, id, "troubleshooting")
	require.NoError(t, err)
	assert.Equal(t, "What specific issue are you experiencing?", sel.Question)
	assert.Equal(t, 0, sel.QuestionIndex)
	assert.Equal(t, 4, sel.TotalQuestions)
	assert.Contains(t, sel.Message, "You've selected Troubleshooting")

	for i, answer := range troubleshootingAnswers {
		res, err := h.svc.Respond(ctx, id, answer)
		require.NoError(t, err)
		if i < 3 {
			assert.Equal(t, domain.StateCollectingDetails, res.Conversation.State)
			assert.Equal(t, i+1, res.QuestionIndex)
			assert.Equal(t, "Thank you for that information!", res.Message)
		} else {
			assert.Equal(t, domain.StateImpactTimeline, res.Conversation.State)
			assert.Equal(t, catalog.ImpactTimelineQuestions(), res.Questions)
		}
	}

	summary, err := h.svc.SubmitImpactTimeline(ctx, id, fullImpact)
	require.NoError(t, err)
	assert.Equal(t, domain.StateConfirmation, summary.Conversation.State)
	assert.Equal(t, "Troubleshooting", summary.RequestTypeName)
	assert.Equal(t,
		"Troubleshooting request: weekly report dashboard export fails. Impact: finance close is blocked. "+
			"Timeline: by friday. Requirements: keep the current layout.",
		summary.Conversation.Summary)
	assert.Equal(t, domain.PriorityP2, summary.Conversation.Priority)
	assert.Equal(t, domain.DifficultyMedium, summary.Conversation.Difficulty)

	done, err := h.svc.Confirm(ctx, id, true)
	require.NoError(t, err)
	require.NotNil(t, done.Ticket)
	assert.Equal(t, domain.StateCompleted, done.Conversation.State)
	assert.Equal(t, domain.TicketStatusNew, done.Ticket.Status)
	assert.Regexp(t, ticketNumberPattern, done.Ticket.TicketNumber)
	assert.Equal(t, done.Ticket.TicketNumber, done.Conversation.TicketNumber)
	assert.Equal(t, "Troubleshooting", done.Ticket.RequestType)
	assert.Equal(t, "Dana", done.Ticket.RequesterName)
	assert.Equal(t, "u-42", done.Ticket.RequesterID)
	assert.Equal(t, "https://bi.example.com/dash/42", done.Ticket.Links)
	assert.Contains(t, done.Ticket.RawConversation, "weekly report dashboard export fails")
	assert.Contains(t, done.Message, "**Ticket Number:** "+done.Ticket.TicketNumber)
	assert.NotContains(t, done.Message, "similar ticket")

	open, err := h.store.Tickets.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, done.Ticket.TicketNumber, open[0].TicketNumber)

	created := h.events.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, int64(1), h.metrics.Snapshot().Counters[observability.CounterTicketsCreated])
}

func TestRespondExhaustsEveryRequestType(t *testing.T) {
	for _, opt := range catalog.Types() {
		opt := opt
		t.Run(opt.ID, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			start, err := h.svc.Start(ctx, "u-1", "Lee")
			require.NoError(t, err)
			id := start.Conversation.ID

			sel, err := h.svc.SelectType(ctx, id, opt.ID)
			require.NoError(t, err)

			for i := 0; i < sel.TotalQuestions; i++ {
				_, err := h.svc.Respond(ctx, id, fmt.Sprintf("answer %d", i))
				require.NoError(t, err)
			}

			conv, err := h.svc.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.StateImpactTimeline, conv.State)
			assert.Len(t, conv.Responses, sel.TotalQuestions)

			_, err = h.svc.Respond(ctx, id, "one too many")
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStateTransition))
		})
	}
}

func TestConfirmTwiceCreatesOneTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.toConfirmation(t, troubleshootingAnswers, fullImpact)

	_, err := h.svc.Confirm(ctx, id, true)
	require.NoError(t, err)

	_, err = h.svc.Confirm(ctx, id, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStateTransition))

	all, err := h.store.Tickets.List(ctx, repositoryFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConfirmRejectionIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.toConfirmation(t, troubleshootingAnswers, fullImpact)

	res, err := h.svc.Confirm(ctx, id, false)
	require.NoError(t, err)
	assert.Nil(t, res.Ticket)
	assert.Equal(t, domain.StateRestartOption, res.Conversation.State)
	assert.Equal(t, "No problem! You can restart the conversation or make changes. What would you like to do?", res.Message)

	stored, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateRestartOption, stored.State)
	assert.Empty(t, stored.Summary)
	assert.Empty(t, stored.Priority)
	assert.Empty(t, stored.Difficulty)

	_, err = h.svc.Confirm(ctx, id, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStateTransition))

	all, err := h.store.Tickets.List(ctx, repositoryFilterAll)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Len(t, h.events.ofType(events.EventConversationRejected), 1)
}

func TestValidationErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Start(ctx, " ", "Dana")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = h.svc.Start(ctx, "u-1", "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	start, err := h.svc.Start(ctx, "u-1", "Dana")
	require.NoError(t, err)
	id := start.Conversation.ID

	_, err = h.svc.SelectType(ctx, id, "finance")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	conv, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateRequestTypeSelection, conv.State)
	assert.Empty(t, conv.RequestType)

	_, err = h.svc.SelectType(ctx, id, "reporting")
	require.NoError(t, err)

	_, err = h.svc.Respond(ctx, id, "   ")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	for i := 0; i < 4; i++ {
		_, err = h.svc.Respond(ctx, id, "sales pipeline")
		require.NoError(t, err)
	}

	_, err = h.svc.SubmitImpactTimeline(ctx, id, domain.ImpactTimeline{Impact: "blocks forecasting"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = h.svc.SubmitImpactTimeline(ctx, id, domain.ImpactTimeline{Impact: "blocks forecasting", Timeline: "next month"})
	require.NoError(t, err)
	conv, err = h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, conv.Summary, "Requirements: None specified.")
}

func TestWrongStateAndUnknownConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Respond(ctx, "missing", "hello")
	assert.True(t, apperrors.Is(err, apperrors.CodeConversationNotFound))
	_, err = h.svc.Get(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.CodeConversationNotFound))

	start, err := h.svc.Start(ctx, "u-1", "Dana")
	require.NoError(t, err)
	id := start.Conversation.ID

	_, err = h.svc.Respond(ctx, id, "too early")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStateTransition))
	_, err = h.svc.SubmitImpactTimeline(ctx, id, fullImpact)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStateTransition))
	_, err = h.svc.Confirm(ctx, id, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStateTransition))

	// The state check runs before input validation.
	_, err = h.svc.SelectType(ctx, id, "tools")
	require.NoError(t, err)
	_, err = h.svc.SelectType(ctx, id, "not-a-type")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStateTransition))
}

func TestFailedSaveKeepsPersistedState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.svc.Start(ctx, "u-1", "Dana")
	require.NoError(t, err)
	id := start.Conversation.ID
	_, err = h.svc.SelectType(ctx, id, "access")
	require.NoError(t, err)

	h.conversations.setFailSave(true)
	_, err = h.svc.Respond(ctx, id, "the finance workspace")
	assert.True(t, apperrors.Is(err, apperrors.CodeStorage))

	conv, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, conv.QuestionIndex)
	assert.Empty(t, conv.Responses)

	h.conversations.setFailSave(false)
	res, err := h.svc.Respond(ctx, id, "the finance workspace")
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuestionIndex)
}

func TestConfirmReplayAfterPartialFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.toConfirmation(t, troubleshootingAnswers, fullImpact)

	h.conversations.setFailSave(true)
	_, err := h.svc.Confirm(ctx, id, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeStorage))

	conv, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateConfirmation, conv.State)

	orphan, err := h.store.Tickets.GetByConversationID(ctx, id)
	require.NoError(t, err)

	h.conversations.setFailSave(false)
	res, err := h.svc.Confirm(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, orphan.TicketNumber, res.Ticket.TicketNumber)
	assert.Empty(t, res.Duplicates, "a replay must not flag its own ticket")

	all, err := h.store.Tickets.List(ctx, repositoryFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Only the committed confirm announces the ticket.
	assert.Len(t, h.events.ofType(events.EventTicketCreated), 1)
	assert.Equal(t, int64(1), h.metrics.Snapshot().Counters[observability.CounterTicketsCreated])
}

func TestConfirmReportsDuplicatesAndSuggestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.Tickets.Create(ctx, &domain.Ticket{
		ID:             "t-existing",
		TicketNumber:   "BI-000001",
		ConversationID: "c-existing",
		CreatedDate:    time.Now().UTC(),
		Summary:        "dashboard export broken for weekly report",
		Status:         domain.TicketStatusInProgress,
	}))
	require.NoError(t, h.store.Tickets.Create(ctx, &domain.Ticket{
		ID:             "t-closed",
		TicketNumber:   "BI-000002",
		ConversationID: "c-closed",
		CreatedDate:    time.Now().UTC(),
		Summary:        "dashboard export broken for weekly report",
		Status:         domain.TicketStatusClosed,
	}))
	for i, e := range []domain.KnowledgeBaseEntry{
		{ID: "kb-access", Keywords: "permission, license"},
		{ID: "kb-export", Keywords: "export, csv"},
		{ID: "kb-dash", Keywords: "dashboard"},
	} {
		e.Position = i
		require.NoError(t, h.store.Knowledge.Upsert(ctx, &e))
	}

	id := h.toConfirmation(t, troubleshootingAnswers, fullImpact)
	res, err := h.svc.Confirm(ctx, id, true)
	require.NoError(t, err)

	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "t-existing", res.Duplicates[0].ID)
	assert.Contains(t, res.Message, "I found 1 similar ticket(s)")

	ids := make([]string, 0, len(res.Suggestions))
	for _, s := range res.Suggestions {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "kb-export")
	assert.Contains(t, ids, "kb-dash")
}

func TestPriorityFromAnswers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	answers := append([]string(nil), troubleshootingAnswers...)
	answers[0] = "this is urgent but also whenever convenient"
	id := h.toConfirmation(t, answers, domain.ImpactTimeline{Impact: "custom integration stalled", Timeline: "asap"})

	conv, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityP0, conv.Priority)
	assert.Equal(t, domain.DifficultyHigh, conv.Difficulty)
}

func TestConcurrentRespondIsSerialized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.svc.Start(ctx, "u-1", "Dana")
	require.NoError(t, err)
	id := start.Conversation.ID
	_, err = h.svc.SelectType(ctx, id, "automation")
	require.NoError(t, err)

	const callers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.Respond(ctx, id, fmt.Sprintf("answer from caller %d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperrors.Is(err, apperrors.CodeInvalidStateTransition):
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, succeeded)
	assert.Equal(t, callers-4, rejected)

	conv, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateImpactTimeline, conv.State)
	for i := 0; i < 4; i++ {
		assert.NotEmpty(t, conv.Responses[fmt.Sprintf("question_%d", i)])
	}
}

func TestBusyConversation(t *testing.T) {
	store := memstore.New()
	locker := locking.NewLocal(10 * time.Millisecond)
	svc := NewConversationService(ConversationDependencies{
		Conversations: store.Conversations,
		Tickets:       store.Tickets,
		Knowledge:     store.Knowledge,
		Locker:        locker,
	})
	ctx := context.Background()

	start, err := svc.Start(ctx, "u-1", "Dana")
	require.NoError(t, err)
	id := start.Conversation.ID

	unlock, err := locker.Lock(ctx, id)
	require.NoError(t, err)
	defer unlock()

	_, err = svc.SelectType(ctx, id, "tools")
	assert.True(t, apperrors.Is(err, apperrors.CodeConversationBusy))
}

func TestPurgeStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.svc.Start(ctx, "u-1", "Dana")
	require.NoError(t, err)
	finished := h.toConfirmation(t, troubleshootingAnswers, fullImpact)
	_, err = h.svc.Confirm(ctx, finished, true)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		h.clock.Now()
	}

	removed, err := h.svc.PurgeStale(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = h.svc.Get(ctx, start.Conversation.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeConversationNotFound))
	_, err = h.svc.Get(ctx, finished)
	assert.NoError(t, err)

	_, err = h.svc.PurgeStale(ctx, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}
