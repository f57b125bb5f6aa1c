package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date form used for Day scoping and the date URL parameter.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned by ParseDate for anything that is not a real YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid date")

// Activity represents one logged block of time inside a Day.
//
// Activities are created and replaced through ActivityInput; the store owns
// the identity and timestamps.
type Activity struct {
	// ─────────────────────────────
	// Identity (assigned by the store)
	// ─────────────────────────────

	// ID is opaque and stable for the lifetime of the activity.
	// Empty before the first write.
	ID string `json:"id"`

	// ─────────────────────────────
	// User-provided fields
	// (replaced as a whole on edit)
	// ─────────────────────────────

	// Name is the display label, at most MaxNameLength characters once trimmed.
	Name string `json:"name"`

	// Category is one of the recognized categories. Unknown values are
	// displayed as Others.
	Category Category `json:"category"`

	// Duration is expressed in whole minutes.
	Duration int `json:"duration"`

	// ─────────────────────────────
	// Store timestamps
	// ─────────────────────────────

	// CreatedAt is set once, when the store first persists the activity.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is zero until the first update.
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ActivityInput is the full-replacement payload for add and update.
type ActivityInput struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Duration int      `json:"duration"`
}

// Input returns the user-provided part of the activity.
func (a Activity) Input() ActivityInput {
	return ActivityInput{Name: a.Name, Category: a.Category, Duration: a.Duration}
}

// Day is the (user, calendar date) scope activities are grouped and budgeted under.
// It has no record of its own.
type Day struct {
	UserID string
	Date   string
}

// NewDay builds a Day after checking the date format.
func NewDay(userID, date string) (Day, error) {
	if _, err := ParseDate(date); err != nil {
		return Day{}, err
	}
	return Day{UserID: userID, Date: date}, nil
}

// Key renders the day as "<user>/<date>", used by in-process indexes.
func (d Day) Key() string {
	return d.UserID + "/" + d.Date
}

// Authenticated reports whether an identity is bound to the day.
func (d Day) Authenticated() bool {
	return d.UserID != ""
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders t in the local calendar as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
