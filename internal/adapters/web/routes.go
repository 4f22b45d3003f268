package web

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures the application routes.
func SetupRoutes(app *fiber.App, handlers *Handlers) {
	app.Get("/healthz", handlers.Health)

	api := app.Group("/api")
	api.Post("/scan", handlers.Scan)
	api.Get("/tweet/:username/:id", handlers.GetTweet)
	api.Get("/tweets", handlers.ListTweets)
}
