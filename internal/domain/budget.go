package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDayMinutes is the budget of a single calendar day.
	MaxDayMinutes = 1440
	// MaxNameLength is the longest accepted activity name, in characters.
	MaxNameLength = 100
)

// Reason identifies why a candidate activity was rejected.
type Reason string

const (
	ReasonNameRequired     Reason = "name_required"
	ReasonNameTooLong      Reason = "name_too_long"
	ReasonCategoryRequired Reason = "category_required"
	ReasonCategoryUnknown  Reason = "category_unknown"
	ReasonDurationTooSmall Reason = "duration_too_small"
	ReasonDurationTooLarge Reason = "duration_too_large"
	ReasonExceedsBudget    Reason = "exceeds_budget"
)

// ValidationError is the user-correctable outcome of a failed validation.
// Remaining is only meaningful for ReasonExceedsBudget and carries the
// effective remaining minutes the candidate was compared against.
type ValidationError struct {
	Reason    Reason
	Remaining int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonNameRequired:
		return "name required"
	case ReasonNameTooLong:
		return fmt.Sprintf("name too long (max %d characters)", MaxNameLength)
	case ReasonCategoryRequired:
		return "category required"
	case ReasonCategoryUnknown:
		return "category unknown"
	case ReasonDurationTooSmall:
		return "duration too small (min 1 minute)"
	case ReasonDurationTooLarge:
		return fmt.Sprintf("duration too large (max %d minutes)", MaxDayMinutes)
	case ReasonExceedsBudget:
		return fmt.Sprintf("exceeds remaining budget: only %d minutes left", e.Remaining)
	default:
		return string(e.Reason)
	}
}

// Is matches any ValidationError carrying the same reason, so the sentinels
// below work with errors.Is regardless of Remaining.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

var (
	ErrNameRequired     = &ValidationError{Reason: ReasonNameRequired}
	ErrNameTooLong      = &ValidationError{Reason: ReasonNameTooLong}
	ErrCategoryRequired = &ValidationError{Reason: ReasonCategoryRequired}
	ErrCategoryUnknown  = &ValidationError{Reason: ReasonCategoryUnknown}
	ErrDurationTooSmall = &ValidationError{Reason: ReasonDurationTooSmall}
	ErrDurationTooLarge = &ValidationError{Reason: ReasonDurationTooLarge}
	ErrExceedsBudget    = &ValidationError{Reason: ReasonExceedsBudget}
)

// ValidateActivity decides whether a candidate activity may be committed.
//
// remainingMinutes is the budget left under the committed set, including the
// activity being edited; editingDuration is that activity's current duration
// (0 for a new activity) and is added back before the budget comparison.
// The checks run in a fixed order and only the first failure is reported.
// On success the parsed duration is returned. The duration must be a whole
// integer; "12.5" or "90min" are rejected, not truncated to a leading prefix.
func ValidateActivity(name, category, duration string, remainingMinutes, editingDuration int) (int, error) {
	if err := validateLabels(name, category); err != nil {
		return 0, err
	}

	text := strings.TrimSpace(duration)
	d, err := strconv.Atoi(text)
	if err != nil {
		// Out of int range but positive is still a number, just too big.
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(text, "-") {
			return 0, &ValidationError{Reason: ReasonDurationTooLarge}
		}
		return 0, &ValidationError{Reason: ReasonDurationTooSmall}
	}
	return d, validateDuration(d, remainingMinutes, editingDuration)
}

// ValidateInput applies the ValidateActivity rules to already typed input.
func ValidateInput(in ActivityInput, remainingMinutes, editingDuration int) error {
	if err := validateLabels(in.Name, string(in.Category)); err != nil {
		return err
	}
	return validateDuration(in.Duration, remainingMinutes, editingDuration)
}

// ValidateCategory is the strict membership check ValidateActivity leaves out.
func ValidateCategory(c Category) error {
	if c == "" {
		return &ValidationError{Reason: ReasonCategoryRequired}
	}
	if !c.Known() {
		return &ValidationError{Reason: ReasonCategoryUnknown}
	}
	return nil
}

func validateLabels(name, category string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Reason: ReasonNameRequired}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Reason: ReasonNameTooLong}
	}
	if category == "" {
		return &ValidationError{Reason: ReasonCategoryRequired}
	}
	return nil
}

func validateDuration(d, remainingMinutes, editingDuration int) error {
	if d < 1 {
		return &ValidationError{Reason: ReasonDurationTooSmall}
	}
	if d > MaxDayMinutes {
		return &ValidationError{Reason: ReasonDurationTooLarge}
	}
	effective := remainingMinutes + editingDuration
	if d > effective {
		return &ValidationError{Reason: ReasonExceedsBudget, Remaining: effective}
	}
	return nil
}
