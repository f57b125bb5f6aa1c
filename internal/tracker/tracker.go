// Package tracker runs the load, validate and persist flow for one day.
package tracker

import (
	"context"
	"errors"
	"strings"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/observability"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

// Options toggles the stricter behaviors. Both are off by default.
type Options struct {
	// StrictCategories rejects categories outside the recognized set.
	StrictCategories bool
	// AtomicBudget re-checks the budget inside the backend transaction when
	// the backend implements store.BudgetGuard.
	AtomicBudget bool
}

// Draft is a candidate activity as typed by the user. Duration is kept as
// text so that the engine decides what counts as a number.
type Draft struct {
	Name     string
	Category string
	Duration string
}

// Service is stateless apart from its dependencies.
type Service struct {
	store store.ActivityStore
	guard store.BudgetGuard
	opts  Options
	log   logger.Logger
}

// New creates a tracker over st.
func New(st store.ActivityStore, log logger.Logger, opts Options) *Service {
	s := &Service{store: st, opts: opts, log: log}
	if opts.AtomicBudget {
		if g, ok := st.(store.BudgetGuard); ok {
			s.guard = g
		} else {
			log.Warn("atomic budget requested but the store has no budget guard, falling back to the advisory check")
		}
	}
	return s
}

// Atomic reports whether writes go through the backend budget guard.
func (s *Service) Atomic() bool { return s.guard != nil }

// Load lists the day and derives its view.
func (s *Service) Load(ctx context.Context, day domain.Day) (View, error) {
	acts, err := s.store.List(ctx, day)
	if err != nil {
		return View{}, err
	}
	return NewView(day, acts), nil
}

// Add validates d against view and persists it as a new activity.
func (s *Service) Add(ctx context.Context, view View, d Draft) (string, error) {
	if !view.Day.Authenticated() {
		return "", store.ErrUnauthenticated
	}

	in, err := s.validate(view, d, 0)
	if err != nil {
		observability.RecordWrite("add", observability.ResultInvalid)
		return "", err
	}

	var id string
	if s.guard != nil {
		id, err = s.guard.AddWithinBudget(ctx, view.Day, in, domain.MaxDayMinutes)
	} else {
		id, err = s.store.Add(ctx, view.Day, in)
	}
	if err != nil {
		s.writeFailed("add", view.Day, err)
		return "", err
	}

	observability.RecordWrite("add", observability.ResultOK)
	s.log.Debug("activity added",
		logger.String("day", view.Day.Key()),
		logger.String("id", id),
		logger.Int("duration", in.Duration))
	return id, nil
}

// Edit validates d against view, giving back the current duration of the
// edited activity, and replaces it.
func (s *Service) Edit(ctx context.Context, view View, id string, d Draft) error {
	if !view.Day.Authenticated() {
		return store.ErrUnauthenticated
	}

	existing, ok := view.Find(id)
	if !ok {
		return store.ErrNotFound
	}

	in, err := s.validate(view, d, existing.Duration)
	if err != nil {
		observability.RecordWrite("update", observability.ResultInvalid)
		return err
	}

	if s.guard != nil {
		err = s.guard.UpdateWithinBudget(ctx, view.Day, id, in, domain.MaxDayMinutes)
	} else {
		err = s.store.Update(ctx, view.Day, id, in)
	}
	if err != nil {
		s.writeFailed("update", view.Day, err)
		return err
	}

	observability.RecordWrite("update", observability.ResultOK)
	return nil
}

// Delete removes an activity. Deleting is never budget-checked.
func (s *Service) Delete(ctx context.Context, day domain.Day, id string) error {
	if err := s.store.Remove(ctx, day, id); err != nil {
		s.writeFailed("remove", day, err)
		return err
	}
	observability.RecordWrite("remove", observability.ResultOK)
	return nil
}

// Watch subscribes to the day and delivers a fresh View on every change.
func (s *Service) Watch(ctx context.Context, day domain.Day, onView func(View)) (*store.Subscription, error) {
	sub, err := s.store.Subscribe(ctx, day, func(acts []domain.Activity) {
		onView(NewView(day, acts))
	})
	if err != nil {
		return nil, err
	}

	observability.SubscriptionOpened()
	go func() {
		<-sub.Done()
		observability.SubscriptionClosed()
	}()
	return sub, nil
}

// validate runs the engine and, in strict mode, the category membership check.
func (s *Service) validate(view View, d Draft, editing int) (domain.ActivityInput, error) {
	name := strings.TrimSpace(d.Name)
	category := strings.TrimSpace(d.Category)

	duration, err := domain.ValidateActivity(name, category, d.Duration, view.Remaining, editing)
	if err == nil && s.opts.StrictCategories {
		err = domain.ValidateCategory(domain.Category(category))
	}
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			observability.RecordRejection(string(ve.Reason))
		}
		return domain.ActivityInput{}, err
	}

	return domain.ActivityInput{
		Name:     name,
		Category: domain.Category(category),
		Duration: duration,
	}, nil
}

func (s *Service) writeFailed(op string, day domain.Day, err error) {
	switch {
	case errors.Is(err, store.ErrBudgetExceeded):
		observability.RecordWrite(op, observability.ResultInvalid)
		observability.RecordRejection(string(domain.ReasonExceedsBudget))
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrUnauthenticated):
		observability.RecordWrite(op, observability.ResultInvalid)
	default:
		observability.RecordWrite(op, observability.ResultError)
		s.log.Error("activity write failed",
			logger.String("op", op),
			logger.String("day", day.Key()),
			logger.Error(err))
	}
}
