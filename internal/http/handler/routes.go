package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docregistry/internal/http/middleware"
	"docregistry/internal/service"
	"docregistry/internal/session"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Health probes stay open; everything under /v1/documents sits behind the
// session auth gate.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, auth session.Authenticator) {
	// Readiness: checks DB connectivity only
	app.Get("/health", HealthCheck(db))

	// Simple liveness probe
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/v1/documents", middleware.Auth(auth))

	docs.Get("/", ListDocuments(docSvc))
	docs.Post("/", CreateDocument(docSvc))
	docs.Get("/:id", GetDocument(docSvc))
	docs.Put("/:id", UpdateDocument(docSvc))
	// Legacy clients send updates as POST to the resource path.
	docs.Post("/:id", UpdateDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
	docs.Delete("/:id/purge", PurgeDocument(docSvc))
}
