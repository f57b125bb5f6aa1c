package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerCategories) }

func registerCategories(r chi.Router, d deps.Deps) {
	r.Get("/categories", handlers.Categories(d))
}
