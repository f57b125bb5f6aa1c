package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Backend    string `json:"backend,omitempty"`
	Source     string `json:"source,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of each component behind the API.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":   checkStore(r.Context(), d),
			"catalog": catalogStatus(d),
			"engine":  engineStatus(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     determineStatus(components),
			Components: components,
		})
	}
}

// determineStatus is "critical" without a store and "degraded" when the
// catalog could not be loaded from its file.
func determineStatus(components map[string]componentStatus) string {
	if s, ok := components["store"]; ok && !s.OK {
		return "critical"
	}
	if c, ok := components["catalog"]; ok && !c.OK {
		return "degraded"
	}
	return "optimal"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Backend: d.Store.Name(), Error: "unreachable"}
	}
	return componentStatus{OK: true, Backend: d.Store.Name()}
}

func catalogStatus(d deps.Deps) componentStatus {
	source, loadedAt := d.Catalog.Stats()
	st := componentStatus{
		OK:         true,
		Source:     source,
		LastReload: loadedAt.Format(time.RFC3339),
	}
	// A configured file that never loaded leaves the built-in entries in place
	if d.ReloadTrigger != nil && source == "builtin" {
		st.OK = false
		st.Error = "category file not loaded, using built-in entries"
	}
	return st
}

func engineStatus(d deps.Deps) componentStatus {
	mode := "advisory"
	if d.Tracker.Atomic() {
		mode = "atomic"
	}
	return componentStatus{OK: true, Mode: mode}
}
