package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/events"
	"github.com/spec-kit/bi-triage-agent/internal/locking"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
	"github.com/spec-kit/bi-triage-agent/internal/repository/memstore"
)

var errStoreDown = errors.New("store down")

var repositoryFilterAll = repository.TicketFilter{}

// testClock advances one second per reading so ticket numbers and timestamps differ.
type testClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newTestClock() *testClock {
	return &testClock{cur: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// flakyConversations fails Save while failSave is set.
type flakyConversations struct {
	repository.ConversationRepository
	mu       sync.Mutex
	failSave bool
}

func (f *flakyConversations) setFailSave(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSave = v
}

func (f *flakyConversations) Save(ctx context.Context, conv *domain.Conversation) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.ConversationRepository.Save(ctx, conv)
}

type capturedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedEvents) handler(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturedEvents) ofType(t events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	svc           *ConversationService
	tickets       *TicketService
	store         *repository.Store
	conversations *flakyConversations
	metrics       *observability.Metrics
	events        *capturedEvents
	clock         *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memstore.New()
	flaky := &flakyConversations{ConversationRepository: store.Conversations}
	clock := newTestClock()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	dispatcher := events.NewInMemoryDispatcher(logger)
	captured := &capturedEvents{}
	dispatcher.Subscribe(events.EventTicketCreated, captured.handler)
	dispatcher.Subscribe(events.EventTicketUpdated, captured.handler)
	dispatcher.Subscribe(events.EventConversationRejected, captured.handler)

	svc := NewConversationService(ConversationDependencies{
		Conversations: flaky,
		Tickets:       store.Tickets,
		Knowledge:     store.Knowledge,
		Factory:       NewTicketFactory(store.Tickets, NewTicketNumberGenerator(clock.Now), logger, clock.Now),
		Locker:        locking.NewLocal(time.Second),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Now:           clock.Now,
	})
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets,
		HistoryRepo: store.History,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Now:         clock.Now,
	})

	return &harness{
		svc:           svc,
		tickets:       tickets,
		store:         store,
		conversations: flaky,
		metrics:       metrics,
		events:        captured,
		clock:         clock,
	}
}

var troubleshootingAnswers = []string{
	"weekly report dashboard export fails",
	"cleared cache and retried",
	"since monday",
	"cannot send the numbers to finance",
}

var fullImpact = domain.ImpactTimeline{
	Impact:       "finance close is blocked",
	Timeline:     "by friday",
	Frequency:    "ongoing",
	Requirements: "keep the current layout",
	Links:        "https://bi.example.com/dash/42",
}

// toConfirmation drives a troubleshooting conversation up to the confirmation step.
func (h *harness) toConfirmation(t *testing.T, answers []string, impact domain.ImpactTimeline) string {
	t.Helper()
	ctx := context.Background()

	start, err := h.svc.Start(ctx, "u-42", "Dana")
	require.NoError(t, err)
	id := start.Conversation.ID

	_, err = h.svc.SelectType(ctx, id, "troubleshooting")
	require.NoError(t, err)
	for _, a := range answers {
		_, err = h.svc.Respond(ctx, id, a)
		require.NoError(t, err)
	}
	_, err = h.svc.SubmitImpactTimeline(ctx, id, impact)
	require.NoError(t, err)
	return id
}
