// Package bootstrap assembles the store, locks and services shared by the
// HTTP server and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/auth"
	"github.com/spec-kit/bi-triage-agent/internal/config"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/events"
	"github.com/spec-kit/bi-triage-agent/internal/knowledge"
	"github.com/spec-kit/bi-triage-agent/internal/locking"
	"github.com/spec-kit/bi-triage-agent/internal/notify"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
	"github.com/spec-kit/bi-triage-agent/internal/persistence"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
	"github.com/spec-kit/bi-triage-agent/internal/repository/memstore"
	"github.com/spec-kit/bi-triage-agent/internal/repository/sqlstore"
	"github.com/spec-kit/bi-triage-agent/internal/service"
)

// Backend holds the opened store and the connections behind it.
type Backend struct {
	Store   *repository.Store
	Redis   *persistence.Redis
	closers []func()
}

// Close releases every connection in reverse open order.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Open connects the configured store driver, applies its schema and wraps
// ticket lookups in the expiring LRU cache.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{}

	var store *repository.Store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				b.Close()
				return nil, err
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
	case config.DriverSQLite, config.DriverMySQL:
		conn, err := persistence.NewSQL(cfg.Store, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, conn.Close)
		if err := sqlstore.Migrate(conn.DB); err != nil {
			b.Close()
			return nil, err
		}
		store = sqlstore.New(conn.DB)
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		store = memstore.New()
	default:
		return nil, fmt.Errorf("bootstrap: unknown store driver %q", cfg.Store.Driver)
	}

	store.Tickets = repository.NewCachedTicketRepository(store.Tickets, cfg.Store.TicketCacheSize, cfg.Store.TicketCacheTTL())
	b.Store = store

	if r := persistence.NewRedis(cfg.Redis, logger); r != nil {
		b.Redis = r
		b.closers = append(b.closers, r.Close)
	}
	return b, nil
}

// Locker returns the Redis locker when Redis is configured, otherwise the
// in-process one. Only the Redis locker is safe across replicas.
func (b *Backend) Locker(cfg config.LockConfig, logger *zap.Logger) locking.Locker {
	if b.Redis != nil {
		return locking.NewRedis(b.Redis.Client, cfg.TTL(), cfg.WaitTimeout(), logger)
	}
	return locking.NewLocal(cfg.WaitTimeout())
}

// SeedKnowledgeBase upserts the configured YAML file, or the embedded
// defaults when none is set.
func (b *Backend) SeedKnowledgeBase(ctx context.Context, cfg config.KnowledgeBaseConfig, logger *zap.Logger) (int, error) {
	var (
		entries []domain.KnowledgeBaseEntry
		err     error
		source  = "embedded"
	)
	if cfg.File != "" {
		entries, err = knowledge.Load(cfg.File)
		source = cfg.File
	} else {
		entries, err = knowledge.Default()
	}
	if err != nil {
		return 0, err
	}

	n, err := knowledge.Seed(ctx, b.Store.Knowledge, entries, time.Now())
	if err != nil {
		return n, err
	}
	logger.Info("knowledge base seeded", zap.Int("entries", n), zap.String("source", source))
	return n, nil
}

// Services is the application layer built on one backend.
type Services struct {
	Conversations *service.ConversationService
	Tickets       *service.TicketService
	Auth          *service.AuthService
	Notifications *service.NotificationService
	Tokens        *auth.TokenManager
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
}

// NewServices wires the services. Notification handlers are registered by
// the worker that drains their queue, not here.
func NewServices(cfg *config.Config, b *Backend, logger *zap.Logger) (*Services, error) {
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	notifiers, err := notify.FromConfig(
		cfg.Notification.SlackWebhookURL,
		cfg.Notification.DiscordWebhookID,
		cfg.Notification.DiscordWebhookToken,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: notifiers: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	locker := b.Locker(cfg.Lock, logger)

	return &Services{
		Conversations: service.NewConversationService(service.ConversationDependencies{
			Conversations: b.Store.Conversations,
			Tickets:       b.Store.Tickets,
			Knowledge:     b.Store.Knowledge,
			Locker:        locker,
			Dispatcher:    dispatcher,
			Metrics:       metrics,
			Logger:        logger,
		}),
		Tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo:  b.Store.Tickets,
			HistoryRepo: b.Store.History,
			Dispatcher:  dispatcher,
			Locker:      locker,
			Logger:      logger,
		}),
		Auth:          service.NewAuthService(cfg.Auth, tokens, logger),
		Notifications: service.NewNotificationService(dispatcher, notifiers, cfg.Notification.QueueSize, metrics, logger),
		Tokens:        tokens,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
	}, nil
}
