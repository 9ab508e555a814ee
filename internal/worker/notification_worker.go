package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/service"
)

const deliveryTimeout = 10 * time.Second

// NotificationWorker drains the notification queue in the background.
type NotificationWorker struct {
	svc    *service.NotificationService
	logger *zap.Logger
	wg     sync.WaitGroup
}

// StartNotificationWorker registers notification handlers and starts delivery.
// Stop the worker by cancelling ctx and calling Wait.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	w := &NotificationWorker{svc: notificationService, logger: logger}
	if notificationService == nil {
		return w
	}
	notificationService.RegisterHandlers()

	w.wg.Add(1)
	go w.run(ctx)
	return w
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	queue := w.svc.Queue()
	for {
		select {
		case <-ctx.Done():
			w.drain(queue)
			return
		case msg := <-queue:
			w.deliver(context.Background(), msg)
		}
	}
}

// drain flushes whatever is already queued at shutdown.
func (w *NotificationWorker) drain(queue <-chan service.Notification) {
	for {
		select {
		case msg := <-queue:
			w.deliver(context.Background(), msg)
		default:
			return
		}
	}
}

func (w *NotificationWorker) deliver(parent context.Context, msg service.Notification) {
	ctx, cancel := context.WithTimeout(parent, deliveryTimeout)
	defer cancel()
	w.svc.Deliver(ctx, msg)
}

// Wait blocks until the worker goroutine has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}
