package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerAnalytics) }

func registerAnalytics(r chi.Router, d deps.Deps) {
	r.With(withTimeout(d)).Get("/days/{date}/analytics", handlers.DayAnalytics(d))
	r.With(withTimeout(d)).Get("/analytics", handlers.Analytics(d))
}
