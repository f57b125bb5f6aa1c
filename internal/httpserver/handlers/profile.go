package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/daylog/internal/auth"
	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

type profileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
}

// GetProfile returns the profile of the token subject.
func GetProfile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == "" {
			writeStoreError(w, r, d, store.ErrUnauthenticated)
			return
		}

		p, err := d.Store.GetProfile(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// UpdateProfile merges the body into the stored profile. Omitted fields keep
// their value; a missing email falls back to the token's email claim.
func UpdateProfile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok || claims.Subject == "" {
			writeStoreError(w, r, d, store.ErrUnauthenticated)
			return
		}

		var body profileRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		name, err := domain.NormalizeProfileName(body.Name)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:  err.Error(),
				Reason: "name_too_short",
			})
			return
		}

		email := strings.TrimSpace(body.Email)
		if email == "" {
			email = claims.Email
		}

		update := domain.Profile{
			UserID:   claims.Subject,
			Name:     name,
			Email:    email,
			PhotoURL: strings.TrimSpace(body.PhotoURL),
		}
		if err := d.Store.SaveProfile(r.Context(), update); err != nil {
			writeStoreError(w, r, d, err)
			return
		}

		saved, err := d.Store.GetProfile(r.Context(), claims.Subject)
		if err != nil {
			writeStoreError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
