package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerActivities) }

func registerActivities(r chi.Router, d deps.Deps) {
	// No timeout on the stream, it lives as long as the client
	r.Get("/days/{date}/activities/stream", handlers.StreamActivities(d))

	r.Group(func(r chi.Router) {
		r.Use(withTimeout(d))
		r.Get("/days/{date}/activities", handlers.ListActivities(d))
		r.Post("/days/{date}/activities", handlers.CreateActivity(d))
		r.Put("/days/{date}/activities/{id}", handlers.UpdateActivity(d))
		r.Delete("/days/{date}/activities/{id}", handlers.DeleteActivity(d))
	})
}
