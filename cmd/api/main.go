package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/bi-triage-agent/internal/api/http"
	"github.com/spec-kit/bi-triage-agent/internal/api/http/handlers"
	"github.com/spec-kit/bi-triage-agent/internal/auth"
	"github.com/spec-kit/bi-triage-agent/internal/bootstrap"
	"github.com/spec-kit/bi-triage-agent/internal/config"
	"github.com/spec-kit/bi-triage-agent/internal/observability"
	"github.com/spec-kit/bi-triage-agent/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer backend.Close()

	if _, err := backend.SeedKnowledgeBase(ctx, cfg.KnowledgeBase, logger); err != nil {
		logger.Fatal("failed to seed knowledge base", zap.Error(err))
	}

	services, err := bootstrap.NewServices(cfg, backend, logger)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}

	notifications := worker.StartNotificationWorker(ctx, services.Notifications, logger)

	var sweeper *worker.Sweeper
	if maxAge := cfg.Sweep.ConversationTTL(); maxAge > 0 {
		sweeper, err = worker.NewSweeper(cfg.Sweep.Schedule, maxAge, services.Conversations, logger)
		if err != nil {
			logger.Fatal("invalid sweep schedule", zap.Error(err))
		}
		sweeper.Start()
	} else {
		logger.Info("conversation sweeper disabled")
	}

	if !cfg.Auth.AdminEnabled() {
		logger.Warn("ADMIN_PASSWORD_HASH not set; admin routes are unauthenticated")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, services.Metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Driver, backend.Store.Ping, backend.Redis),
		Metrics:       handlers.NewMetricsHandler(services.Metrics),
		Conversations: handlers.NewConversationHandler(services.Conversations),
		Tickets:       handlers.NewTicketsHandler(services.Tickets),
		Admin:         handlers.NewAdminHandler(services.Tickets, services.Auth),
		AdminAuth:     auth.NewAdminMiddleware(services.Tokens, cfg.Auth.AdminEnabled()),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	if sweeper != nil {
		sweeper.Stop()
	}
	cancel()
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
