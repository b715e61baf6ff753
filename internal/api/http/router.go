package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tracking *handlers.TrackingHandler
	Tickets  *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/track", cfg.Tracking.Track)

	admin := app.Group("/admin/tickets")
	admin.Post("/", cfg.Tickets.CreateTicket)
	admin.Get("/", cfg.Tickets.ListTickets)
	admin.Get("/:id", cfg.Tickets.GetTicket)
	admin.Patch("/:id", cfg.Tickets.UpdateTicket)
	admin.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	admin.Patch("/:id/priority", cfg.Tickets.UpdatePriority)
	admin.Delete("/:id", cfg.Tickets.DeleteTicket)
}
