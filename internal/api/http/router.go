package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/http/handlers"
	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	Ingestion      *handlers.IngestionHandler
	Alerts         *handlers.AlertsHandler
	Catalog        *handlers.CatalogHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/users", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin), cfg.Users.CreateUser)

	requests := app.Group("/requests", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	requests.Post("/batch", cfg.Ingestion.Ingest)
	requests.Get("/batch/last-report", cfg.Ingestion.LastReport)
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/", cfg.Requests.List)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Put("/:id", cfg.Requests.Update)
	requests.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Requests.Delete)
	requests.Get("/:id/alerts", cfg.Alerts.ListForRequest)

	alerts := app.Group("/alerts", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	alerts.Patch("/:id/read", cfg.Alerts.MarkRead)

	catalog := app.Group("/catalog", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	catalog.Get("/policies", cfg.Catalog.ListPolicies)
	catalog.Get("/persons", cfg.Catalog.ListPersons)
	catalog.Get("/role-tags", cfg.Catalog.ListRoleTags)
}
