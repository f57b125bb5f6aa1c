package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/daylog/internal/domain"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]domain.Activity
	ch    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 16)}
}

func (r *recorder) onChange(acts []domain.Activity) {
	r.mu.Lock()
	r.calls = append(r.calls, acts)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestWatchDeliversImmediatelyAndOnChange(t *testing.T) {
	hub := NewHub()
	changes, release := hub.Listen("u/2026-10-17")

	var n atomic.Int32
	load := func(context.Context) ([]domain.Activity, error) {
		i := int(n.Add(1))
		return []domain.Activity{{ID: "a", Duration: i}}, nil
	}

	rec := newRecorder()
	sub, err := Watch(context.Background(), Feed{Load: load, Changes: changes, Release: release}, rec.onChange)
	require.NoError(t, err)
	defer sub.Stop()

	rec.wait(t)
	assert.Equal(t, 1, rec.count(), "first delivery happens before Watch returns")

	hub.Notify("u/2026-10-17")
	rec.wait(t)

	rec.mu.Lock()
	last := rec.calls[len(rec.calls)-1]
	rec.mu.Unlock()
	assert.Equal(t, 2, last[0].Duration)
}

func TestWatchStopIsIdempotentAndReleases(t *testing.T) {
	hub := NewHub()
	changes, release := hub.Listen("k")

	var released atomic.Int32
	sub, err := Watch(context.Background(), Feed{
		Load:    func(context.Context) ([]domain.Activity, error) { return nil, nil },
		Changes: changes,
		Release: func() { released.Add(1); release() },
	}, func([]domain.Activity) {})
	require.NoError(t, err)

	sub.Stop()
	sub.Stop()
	sub.Stop()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	assert.Equal(t, int32(1), released.Load())
	assert.Equal(t, 0, hub.Listeners("k"))
}

func TestWatchStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := Watch(ctx, Feed{
		Load:    func(context.Context) ([]domain.Activity, error) { return nil, nil },
		Changes: make(chan struct{}),
	}, func([]domain.Activity) {})
	require.NoError(t, err)

	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop on context cancel")
	}
}

func TestWatchFirstLoadErrorReleases(t *testing.T) {
	boom := errors.New("boom")
	released := false

	sub, err := Watch(context.Background(), Feed{
		Load:    func(context.Context) ([]domain.Activity, error) { return nil, boom },
		Release: func() { released = true },
	}, func([]domain.Activity) { t.Fatal("onChange must not run") })

	assert.Nil(t, sub)
	assert.ErrorIs(t, err, boom)
	assert.True(t, released)
}

func TestWatchReloadErrorKeepsFeedAlive(t *testing.T) {
	hub := NewHub()
	changes, release := hub.Listen("k")

	var calls atomic.Int32
	boom := errors.New("transient")
	load := func(context.Context) ([]domain.Activity, error) {
		if calls.Add(1) == 2 {
			return nil, boom
		}
		return []domain.Activity{}, nil
	}

	errs := make(chan error, 1)
	rec := newRecorder()
	sub, err := Watch(context.Background(), Feed{
		Load: load, Changes: changes, Release: release,
		OnError: func(err error) { errs <- err },
	}, rec.onChange)
	require.NoError(t, err)
	defer sub.Stop()
	rec.wait(t)

	hub.Notify("k")
	select {
	case got := <-errs:
		assert.ErrorIs(t, got, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload error")
	}
	assert.ErrorIs(t, sub.Err(), boom)

	hub.Notify("k")
	rec.wait(t)
	assert.Equal(t, 2, rec.count())
}

func TestStaticDeliversEmptyList(t *testing.T) {
	var got []domain.Activity
	sub := Static(context.Background(), func(acts []domain.Activity) { got = acts })
	require.NotNil(t, sub)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	sub.Stop()
	<-sub.Done()
}

func TestHubNotifyCoalesces(t *testing.T) {
	hub := NewHub()
	ch, release := hub.Listen("k")
	defer release()

	for i := 0; i < 10; i++ {
		hub.Notify("k")
	}
	assert.Len(t, ch, 1)

	hub.Notify("other")
	assert.Len(t, ch, 1)
}

func TestUnavailableWrapsBoth(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Unavailable("list activities", cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list activities")
	assert.NoError(t, Unavailable("noop", nil))
}
