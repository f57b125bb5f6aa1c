package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/daylog/internal/auth"
	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps engine and store errors to status codes. It is the
// only place that decides how a failure looks on the wire.
func writeStoreError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		resp := errorResponse{Error: ve.Error(), Reason: string(ve.Reason)}
		if ve.Reason == domain.ReasonExceedsBudget {
			remaining := ve.Remaining
			resp.Remaining = &remaining
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, domain.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	case errors.Is(err, store.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrBudgetExceeded):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:  "day budget exceeded by a concurrent write",
			Reason: string(domain.ReasonExceedsBudget),
		})
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		d.Logger.Error("store unavailable",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		d.Logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// dayFromRequest binds the {date} URL parameter to the token subject.
// Anonymous requests get a Day without a user.
func dayFromRequest(r *http.Request) (domain.Day, error) {
	return domain.NewDay(auth.UserID(r.Context()), chi.URLParam(r, "date"))
}

// decodeJSON reads a single JSON document into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
