package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/tracker"
)

// dayResponse is the payload of the list route and of every stream event.
type dayResponse struct {
	Date             string                 `json:"date"`
	Activities       []domain.Activity      `json:"activities"`
	TotalMinutes     int                    `json:"totalMinutes"`
	RemainingMinutes int                    `json:"remainingMinutes"`
	Count            int                    `json:"count"`
	Summary          domain.Summary         `json:"summary"`
	Categories       []domain.CategoryTotal `json:"categories"`
}

func newDayResponse(v tracker.View) dayResponse {
	return dayResponse{
		Date:             v.Day.Date,
		Activities:       v.Activities,
		TotalMinutes:     v.Summary.TotalMinutes,
		RemainingMinutes: v.Remaining,
		Count:            v.Summary.Count,
		Summary:          v.Summary,
		Categories:       v.Totals,
	}
}

// durationText accepts a JSON number or string and keeps its text, so the
// engine alone decides what a valid duration is.
type durationText string

func (d *durationText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*d = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = durationText(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*d = durationText(n.String())
		return nil
	}
}

type activityRequest struct {
	Name     string       `json:"name"`
	Category string       `json:"category"`
	Duration durationText `json:"duration"`
}

func (a activityRequest) draft() tracker.Draft {
	return tracker.Draft{Name: a.Name, Category: a.Category, Duration: string(a.Duration)}
}

type createdResponse struct {
	ID string `json:"id"`
}

// ListActivities returns the day newest first with its aggregates.
func ListActivities(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayFromRequest(r)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		view, err := d.Tracker.Load(r.Context(), day)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, newDayResponse(view))
	}
}

// CreateActivity validates the body against a fresh view of the day and stores it.
func CreateActivity(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayFromRequest(r)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		var body activityRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		view, err := d.Tracker.Load(r.Context(), day)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		id, err := d.Tracker.Add(r.Context(), view, body.draft())
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		d.Logger.Info("activity created",
			logger.String("day", day.Key()),
			logger.String("id", id))
		w.Header().Set("Location", r.URL.Path+"/"+id)
		writeJSON(w, http.StatusCreated, createdResponse{ID: id})
	}
}

// UpdateActivity replaces an activity. Its current duration counts as available budget.
func UpdateActivity(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayFromRequest(r)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		var body activityRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		view, err := d.Tracker.Load(r.Context(), day)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		id := chi.URLParam(r, "id")
		if err := d.Tracker.Edit(r.Context(), view, id, body.draft()); err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteActivity removes an activity. Unknown ids still answer 204.
func DeleteActivity(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayFromRequest(r)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		if err := d.Tracker.Delete(r.Context(), day, chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
