package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerProfile) }

func registerProfile(r chi.Router, d deps.Deps) {
	r.With(withTimeout(d)).Get("/profile", handlers.GetProfile(d))
	r.With(withTimeout(d)).Put("/profile", handlers.UpdateProfile(d))
}
