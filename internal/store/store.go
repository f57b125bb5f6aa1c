// Package store defines the persistence contract the tracker depends on.
// Implementations live in the memory, redis and sqlite subpackages.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/daylog/internal/domain"
)

var (
	// ErrUnauthenticated is returned by writes attempted without a user bound to the Day.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound is returned when updating an activity or reading a profile that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable wraps any backend I/O failure.
	ErrUnavailable = errors.New("store unavailable")
	// ErrBudgetExceeded is returned by BudgetGuard writes that would push a day past its limit.
	ErrBudgetExceeded = errors.New("day budget exceeded")
)

// ActivityStore lists, writes and watches the activities of a single Day.
//
// List returns activities most recently created first. An unauthenticated Day
// lists as empty. Add, Update and Remove fail with ErrUnauthenticated when no
// user is bound. Update replaces name, category and duration as a whole.
// Removing an unknown id is not an error.
type ActivityStore interface {
	List(ctx context.Context, day domain.Day) ([]domain.Activity, error)
	Add(ctx context.Context, day domain.Day, in domain.ActivityInput) (string, error)
	Update(ctx context.Context, day domain.Day, id string, in domain.ActivityInput) error
	Remove(ctx context.Context, day domain.Day, id string) error

	// Subscribe delivers the full current list once immediately and again after
	// every change to the day. Deliveries are serialized per subscription.
	Subscribe(ctx context.Context, day domain.Day, onChange func([]domain.Activity)) (*Subscription, error)
}

// BudgetGuard is implemented by backends able to check the day budget and
// write in one transaction.
type BudgetGuard interface {
	AddWithinBudget(ctx context.Context, day domain.Day, in domain.ActivityInput, limit int) (string, error)
	UpdateWithinBudget(ctx context.Context, day domain.Day, id string, in domain.ActivityInput, limit int) error
}

// ProfileStore keeps the per-user profile document.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	// SaveProfile merges non-empty fields into the stored profile.
	SaveProfile(ctx context.Context, p domain.Profile) error
}

// Pruner deletes whole days dated strictly before the cutoff (YYYY-MM-DD).
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff string) (int, error)
}

// Backend is what the application wires: every contract plus lifecycle.
type Backend interface {
	ActivityStore
	ProfileStore
	Pruner
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// Unavailable wraps err with ErrUnavailable and an operation label.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
