package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bi-triage-agent/internal/api/http/handlers"
	"github.com/spec-kit/bi-triage-agent/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Metrics       *handlers.MetricsHandler
	Conversations *handlers.ConversationHandler
	Tickets       *handlers.TicketsHandler
	Admin         *handlers.AdminHandler
	AdminAuth     *auth.AdminMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	api := app.Group("/api")

	conversation := api.Group("/conversation")
	conversation.Post("/start", cfg.Conversations.Start)
	conversation.Post("/select-type", cfg.Conversations.SelectType)
	conversation.Post("/respond", cfg.Conversations.Respond)
	conversation.Post("/impact-timeline", cfg.Conversations.ImpactTimeline)
	conversation.Post("/confirm", cfg.Conversations.Confirm)
	conversation.Get("/:id", cfg.Conversations.Get)

	api.Get("/ticket/:ticketNumber", cfg.Tickets.GetTicket)

	admin := api.Group("/admin")
	admin.Post("/login", cfg.Admin.Login)

	protected := admin.Group("", cfg.AdminAuth.Handle, auth.RequireAdmin())
	protected.Get("/tickets", cfg.Admin.ListTickets)
	protected.Get("/stats", cfg.Admin.Stats)
	protected.Put("/ticket/:id", cfg.Admin.UpdateTicket)
	protected.Get("/ticket/:id/history", cfg.Admin.History)
}
