package store

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/daylog/internal/domain"
)

// Subscription is the handle returned by ActivityStore.Subscribe.
type Subscription struct {
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Stop ends the feed and releases its resources. Safe to call more than once
// and from inside the onChange callback. It does not wait; use Done for that.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the last reload error seen by the feed, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// LoadFunc reads the full current list of a day.
type LoadFunc func(ctx context.Context) ([]domain.Activity, error)

// Feed describes where a subscription gets its data and change signals from.
type Feed struct {
	Load LoadFunc
	// Changes fires after a write. A nil channel means the first delivery is the only one.
	// Closing it ends the subscription.
	Changes <-chan struct{}
	// Release runs exactly once when the subscription ends.
	Release func()
	// OnError observes reload failures after the first delivery; optional.
	OnError func(error)
}

// Watch performs the first delivery synchronously, then keeps reloading and
// delivering on every change signal until ctx is done, Stop is called or
// Changes is closed. If the first load fails, Release runs and the error is
// returned.
func Watch(ctx context.Context, f Feed, onChange func([]domain.Activity)) (*Subscription, error) {
	release := func() {}
	if f.Release != nil {
		var once sync.Once
		release = func() { once.Do(f.Release) }
	}

	first, err := f.Load(ctx)
	if err != nil {
		release()
		return nil, err
	}
	onChange(nonNil(first))

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer release()
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-f.Changes:
				if !ok {
					return
				}
				acts, err := f.Load(ctx)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					sub.setErr(err)
					if f.OnError != nil {
						f.OnError(err)
					}
					continue
				}
				onChange(nonNil(acts))
			}
		}
	}()

	return sub, nil
}

// Static delivers an empty list once and returns a handle with nothing behind it.
// Backends use it for unauthenticated subscriptions.
func Static(ctx context.Context, onChange func([]domain.Activity)) *Subscription {
	sub, _ := Watch(ctx, Feed{
		Load: func(context.Context) ([]domain.Activity, error) { return nil, nil },
	}, onChange)
	return sub
}

func nonNil(acts []domain.Activity) []domain.Activity {
	if acts == nil {
		return []domain.Activity{}
	}
	return acts
}
