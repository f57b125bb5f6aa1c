package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MinProfileNameLength is the shortest display name accepted on profile update.
const MinProfileNameLength = 2

// ErrProfileNameTooShort is returned by NormalizeProfileName.
var ErrProfileNameTooShort = errors.New("name must be at least 2 characters")

// Profile is the per-user document the identity side keeps next to the days.
// The budget engine never reads it.
type Profile struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	PhotoURL  string    `json:"photoURL,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeProfileName trims a display name and checks its length.
func NormalizeProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < MinProfileNameLength {
		return "", ErrProfileNameTooShort
	}
	return name, nil
}

// Merge overlays the non-empty fields of update onto p.
func (p Profile) Merge(update Profile) Profile {
	if update.Name != "" {
		p.Name = update.Name
	}
	if update.Email != "" {
		p.Email = update.Email
	}
	if update.PhotoURL != "" {
		p.PhotoURL = update.PhotoURL
	}
	if !update.UpdatedAt.IsZero() {
		p.UpdatedAt = update.UpdatedAt
	}
	if update.UserID != "" {
		p.UserID = update.UserID
	}
	return p
}
