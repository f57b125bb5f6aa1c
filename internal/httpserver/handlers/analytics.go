package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/daylog/internal/analytics"
	"github.com/MrSnakeDoc/daylog/internal/auth"
	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
)

// DayAnalytics serves the analytics payload of the {date} in the path.
func DayAnalytics(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayFromRequest(r)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		serveAnalytics(w, r, d, day)
	}
}

// Analytics serves the analytics of ?date=, today (server local date) when absent.
func Analytics(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = domain.FormatDate(d.Now())
		}

		day, err := domain.NewDay(auth.UserID(r.Context()), date)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		serveAnalytics(w, r, d, day)
	}
}

func serveAnalytics(w http.ResponseWriter, r *http.Request, d deps.Deps, day domain.Day) {
	view, err := d.Tracker.Load(r.Context(), day)
	if err != nil {
		writeStoreError(w, r, d, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Build(day.Date, view.Activities, d.Catalog))
}
