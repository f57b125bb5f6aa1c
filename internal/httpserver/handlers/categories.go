package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/daylog/internal/catalog"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
)

type categoriesResponse struct {
	Categories []catalog.Entry `json:"categories"`
	Source     string          `json:"source"`
}

// Categories lists the catalog in canonical order.
func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source, _ := d.Catalog.Stats()
		writeJSON(w, http.StatusOK, categoriesResponse{
			Categories: d.Catalog.Entries(),
			Source:     source,
		})
	}
}
