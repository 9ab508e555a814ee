package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/events"
	"github.com/spec-kit/bi-triage-agent/internal/notify"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
)

// Notification is one rendered message waiting for delivery.
type Notification struct {
	EventID string
	Text    string
}

// NotificationService turns domain events into chat notifications. Handlers
// only enqueue; a worker drains the queue so webhook latency never reaches
// the conversation flow.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifiers  []notify.Notifier
	queue      chan Notification
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifiers []notify.Notifier, queueSize int, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifiers:  notifiers,
		queue:      make(chan Notification, queueSize),
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

// Queue exposes pending notifications to the delivery worker.
func (n *NotificationService) Queue() <-chan Notification {
	return n.queue
}

// Deliver sends one notification to every configured destination.
func (n *NotificationService) Deliver(ctx context.Context, msg Notification) {
	for _, notifier := range n.notifiers {
		if err := notifier.Notify(ctx, msg.Text); err != nil {
			n.metrics.Inc(observability.CounterNotificationsFailed, 1)
			n.logger.Warn("notification failed",
				zap.String("notifier", notifier.Name()),
				zap.String("event_id", msg.EventID),
				zap.Error(err))
		}
	}
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	text := fmt.Sprintf("New BI ticket %s [%s / %s] from %s (%s): %s",
		payload.TicketNumber, payload.Priority, payload.Difficulty,
		payload.RequesterName, payload.RequestType, payload.Summary)
	if payload.Duplicates > 0 {
		text += fmt.Sprintf(" | %d possible duplicate(s)", payload.Duplicates)
	}
	return n.enqueue(Notification{EventID: event.ID, Text: text})
}

func (n *NotificationService) handleTicketUpdated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	text := fmt.Sprintf("Ticket %s updated by %s:", payload.TicketNumber, event.Actor)
	for _, change := range payload.Changes {
		text += fmt.Sprintf(" %s %q -> %q;", change.Field, change.OldValue, change.NewValue)
	}
	return n.enqueue(Notification{EventID: event.ID, Text: text})
}

func (n *NotificationService) enqueue(msg Notification) error {
	select {
	case n.queue <- msg:
		return nil
	default:
		n.metrics.Inc(observability.CounterNotificationsFailed, 1)
		return fmt.Errorf("notification queue full, dropping event %s", msg.EventID)
	}
}
