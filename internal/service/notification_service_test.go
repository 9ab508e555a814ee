package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/events"
	"github.com/spec-kit/bi-triage-agent/internal/notify"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
)

type stubNotifier struct {
	texts []string
	err   error
}

func (s *stubNotifier) Name() string { return "stub" }

func (s *stubNotifier) Notify(_ context.Context, text string) error {
	s.texts = append(s.texts, text)
	return s.err
}

func TestNotificationServiceQueuesAndDelivers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	stub := &stubNotifier{}
	metrics := observability.NewMetrics()
	svc := NewNotificationService(dispatcher, []notify.Notifier{stub}, 1, metrics, zap.NewNop())
	svc.RegisterHandlers()
	ctx := context.Background()

	update := events.Event{
		ID:    "e-1",
		Type:  events.EventTicketUpdated,
		Actor: "ops",
		Payload: events.TicketUpdatedPayload{
			TicketNumber: "BI-000042",
			Changes: []domain.TicketHistory{
				{Field: domain.FieldStatus, OldValue: "New", NewValue: "Closed"},
			},
		},
	}
	require.NoError(t, dispatcher.Publish(ctx, update))
	// Queue holds one message; the second is dropped and counted.
	require.NoError(t, dispatcher.Publish(ctx, update))
	assert.Equal(t, int64(1), metrics.Snapshot().Counters[observability.CounterNotificationsFailed])

	msg := <-svc.Queue()
	assert.Equal(t, `Ticket BI-000042 updated by ops: status "New" -> "Closed";`, msg.Text)

	stub.err = errors.New("webhook 500")
	svc.Deliver(ctx, msg)
	require.Len(t, stub.texts, 1)
	assert.Equal(t, int64(2), metrics.Snapshot().Counters[observability.CounterNotificationsFailed])
}
