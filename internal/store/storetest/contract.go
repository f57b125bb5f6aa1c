// Package storetest holds the behavioural checks every store.Backend must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

// Factory returns a fresh, empty backend. Cleanup is the caller's business (t.Cleanup).
type Factory func(t *testing.T) store.Backend

const deliveryTimeout = 5 * time.Second

// Run executes the contract suite against backends built by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("ListEmptyDay", func(t *testing.T) { testListEmptyDay(t, newBackend(t)) })
	t.Run("Unauthenticated", func(t *testing.T) { testUnauthenticated(t, newBackend(t)) })
	t.Run("AddListsNewestFirst", func(t *testing.T) { testAddListsNewestFirst(t, newBackend(t)) })
	t.Run("UpdateReplacesFields", func(t *testing.T) { testUpdateReplacesFields(t, newBackend(t)) })
	t.Run("UpdateUnknown", func(t *testing.T) { testUpdateUnknown(t, newBackend(t)) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, newBackend(t)) })
	t.Run("DaysAreIsolated", func(t *testing.T) { testDaysAreIsolated(t, newBackend(t)) })
	t.Run("Subscribe", func(t *testing.T) { testSubscribe(t, newBackend(t)) })
	t.Run("SubscribeUnauthenticated", func(t *testing.T) { testSubscribeUnauthenticated(t, newBackend(t)) })
	t.Run("Profiles", func(t *testing.T) { testProfiles(t, newBackend(t)) })
	t.Run("PruneBefore", func(t *testing.T) { testPruneBefore(t, newBackend(t)) })
	t.Run("BudgetGuard", func(t *testing.T) {
		b := newBackend(t)
		g, ok := b.(store.BudgetGuard)
		if !ok {
			t.Skipf("%s does not implement BudgetGuard", b.Name())
		}
		testBudgetGuard(t, b, g)
	})
}

func day(user, date string) domain.Day { return domain.Day{UserID: user, Date: date} }

func input(name string, c domain.Category, d int) domain.ActivityInput {
	return domain.ActivityInput{Name: name, Category: c, Duration: d}
}

func testListEmptyDay(t *testing.T, b store.Backend) {
	acts, err := b.List(context.Background(), day("u1", "2026-10-17"))
	require.NoError(t, err)
	assert.NotNil(t, acts)
	assert.Empty(t, acts)
}

func testUnauthenticated(t *testing.T, b store.Backend) {
	ctx := context.Background()
	anon := day("", "2026-10-17")

	acts, err := b.List(ctx, anon)
	require.NoError(t, err)
	assert.Empty(t, acts)

	_, err = b.Add(ctx, anon, input("x", domain.CategoryWork, 10))
	assert.ErrorIs(t, err, store.ErrUnauthenticated)
	assert.ErrorIs(t, b.Update(ctx, anon, "id", input("x", domain.CategoryWork, 10)), store.ErrUnauthenticated)
	assert.ErrorIs(t, b.Remove(ctx, anon, "id"), store.ErrUnauthenticated)
}

func testAddListsNewestFirst(t *testing.T, b store.Backend) {
	ctx := context.Background()
	d := day("u1", "2026-10-17")

	first, err := b.Add(ctx, d, input("Meeting", domain.CategoryWork, 90))
	require.NoError(t, err)
	require.NotEmpty(t, first)
	second, err := b.Add(ctx, d, input("Gym", domain.CategoryExercise, 45))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	acts, err := b.List(ctx, d)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, second, acts[0].ID)
	assert.Equal(t, first, acts[1].ID)

	assert.Equal(t, "Meeting", acts[1].Name)
	assert.Equal(t, domain.CategoryWork, acts[1].Category)
	assert.Equal(t, 90, acts[1].Duration)
	assert.False(t, acts[1].CreatedAt.IsZero())
	assert.True(t, acts[1].UpdatedAt.IsZero())
}

func testUpdateReplacesFields(t *testing.T, b store.Backend) {
	ctx := context.Background()
	d := day("u1", "2026-10-17")

	id, err := b.Add(ctx, d, input("Read", domain.CategoryStudy, 30))
	require.NoError(t, err)

	require.NoError(t, b.Update(ctx, d, id, input("Read more", domain.CategoryOthers, 75)))

	acts, err := b.List(ctx, d)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, id, acts[0].ID)
	assert.Equal(t, "Read more", acts[0].Name)
	assert.Equal(t, domain.CategoryOthers, acts[0].Category)
	assert.Equal(t, 75, acts[0].Duration)
	assert.False(t, acts[0].UpdatedAt.IsZero())
}

func testUpdateUnknown(t *testing.T, b store.Backend) {
	err := b.Update(context.Background(), day("u1", "2026-10-17"), "missing", input("x", domain.CategoryWork, 1))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRemove(t *testing.T, b store.Backend) {
	ctx := context.Background()
	d := day("u1", "2026-10-17")

	id, err := b.Add(ctx, d, input("Nap", domain.CategorySleep, 20))
	require.NoError(t, err)

	require.NoError(t, b.Remove(ctx, d, id))
	require.NoError(t, b.Remove(ctx, d, id), "removing twice is a no-op")
	require.NoError(t, b.Remove(ctx, d, "never-existed"))

	acts, err := b.List(ctx, d)
	require.NoError(t, err)
	assert.Empty(t, acts)
}

func testDaysAreIsolated(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, err := b.Add(ctx, day("u1", "2026-10-17"), input("a", domain.CategoryWork, 10))
	require.NoError(t, err)
	_, err = b.Add(ctx, day("u1", "2026-10-18"), input("b", domain.CategoryWork, 20))
	require.NoError(t, err)
	_, err = b.Add(ctx, day("u2", "2026-10-17"), input("c", domain.CategoryWork, 30))
	require.NoError(t, err)

	acts, err := b.List(ctx, day("u1", "2026-10-17"))
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "a", acts[0].Name)
}

type deliveries struct {
	mu  sync.Mutex
	got [][]domain.Activity
	ch  chan struct{}
}

func (d *deliveries) onChange(acts []domain.Activity) {
	d.mu.Lock()
	d.got = append(d.got, acts)
	d.mu.Unlock()
	select {
	case d.ch <- struct{}{}:
	default:
	}
}

func (d *deliveries) last() []domain.Activity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.got[len(d.got)-1]
}

// waitFor blocks until a delivery satisfies cond.
func (d *deliveries) waitFor(t *testing.T, cond func([]domain.Activity) bool) {
	t.Helper()
	deadline := time.After(deliveryTimeout)
	for {
		if cond(d.last()) {
			return
		}
		select {
		case <-d.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for delivery, last = %+v", d.last())
		}
	}
}

func testSubscribe(t *testing.T, b store.Backend) {
	ctx := context.Background()
	d := day("u1", "2026-10-17")

	_, err := b.Add(ctx, d, input("Existing", domain.CategoryWork, 60))
	require.NoError(t, err)

	rec := &deliveries{ch: make(chan struct{}, 1)}
	sub, err := b.Subscribe(ctx, d, rec.onChange)
	require.NoError(t, err)
	t.Cleanup(sub.Stop)

	require.Len(t, rec.last(), 1, "first delivery happens immediately")

	id, err := b.Add(ctx, d, input("New", domain.CategoryStudy, 30))
	require.NoError(t, err)
	rec.waitFor(t, func(acts []domain.Activity) bool { return len(acts) == 2 })
	assert.Equal(t, id, rec.last()[0].ID)

	require.NoError(t, b.Update(ctx, d, id, input("New", domain.CategoryStudy, 45)))
	rec.waitFor(t, func(acts []domain.Activity) bool { return len(acts) == 2 && acts[0].Duration == 45 })

	require.NoError(t, b.Remove(ctx, d, id))
	rec.waitFor(t, func(acts []domain.Activity) bool { return len(acts) == 1 })

	sub.Stop()
	sub.Stop()
	select {
	case <-sub.Done():
	case <-time.After(deliveryTimeout):
		t.Fatal("subscription did not stop")
	}
}

func testSubscribeUnauthenticated(t *testing.T, b store.Backend) {
	var got []domain.Activity
	calls := 0
	sub, err := b.Subscribe(context.Background(), day("", "2026-10-17"), func(acts []domain.Activity) {
		calls++
		got = acts
	})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, 1, calls)
	assert.Empty(t, got)
	sub.Stop()
	sub.Stop()
}

func testProfiles(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, err := b.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, b.SaveProfile(ctx, domain.Profile{UserID: "u1", Name: "Ada", Email: "ada@example.com"}))
	require.NoError(t, b.SaveProfile(ctx, domain.Profile{UserID: "u1", Name: "Ada L."}))

	p, err := b.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "Ada L.", p.Name)
	assert.Equal(t, "ada@example.com", p.Email, "merge keeps fields not in the update")
	assert.False(t, p.UpdatedAt.IsZero())

	assert.ErrorIs(t, b.SaveProfile(ctx, domain.Profile{Name: "anon"}), store.ErrUnauthenticated)
}

func testPruneBefore(t *testing.T, b store.Backend) {
	ctx := context.Background()
	old := day("u1", "2025-01-01")
	recent := day("u1", "2026-10-17")

	_, err := b.Add(ctx, old, input("a", domain.CategoryWork, 10))
	require.NoError(t, err)
	_, err = b.Add(ctx, old, input("b", domain.CategoryWork, 10))
	require.NoError(t, err)
	_, err = b.Add(ctx, recent, input("c", domain.CategoryWork, 10))
	require.NoError(t, err)

	n, err := b.PruneBefore(ctx, "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	acts, err := b.List(ctx, old)
	require.NoError(t, err)
	assert.Empty(t, acts)

	acts, err = b.List(ctx, recent)
	require.NoError(t, err)
	assert.Len(t, acts, 1)
}

func testBudgetGuard(t *testing.T, b store.Backend, g store.BudgetGuard) {
	ctx := context.Background()
	d := day("u1", "2026-10-17")

	id, err := g.AddWithinBudget(ctx, d, input("Sleep", domain.CategorySleep, 1000), domain.MaxDayMinutes)
	require.NoError(t, err)

	_, err = g.AddWithinBudget(ctx, d, input("Work", domain.CategoryWork, 500), domain.MaxDayMinutes)
	assert.ErrorIs(t, err, store.ErrBudgetExceeded)

	_, err = g.AddWithinBudget(ctx, d, input("Work", domain.CategoryWork, 440), domain.MaxDayMinutes)
	require.NoError(t, err)

	assert.ErrorIs(t, g.UpdateWithinBudget(ctx, d, id, input("Sleep", domain.CategorySleep, 1001), domain.MaxDayMinutes), store.ErrBudgetExceeded)
	require.NoError(t, g.UpdateWithinBudget(ctx, d, id, input("Sleep", domain.CategorySleep, 900), domain.MaxDayMinutes))
	assert.ErrorIs(t, g.UpdateWithinBudget(ctx, d, "missing", input("x", domain.CategoryWork, 1), domain.MaxDayMinutes), store.ErrNotFound)

	acts, err := b.List(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 1340, domain.TotalMinutes(acts))

	_, err = g.AddWithinBudget(ctx, day("", "2026-10-17"), input("x", domain.CategoryWork, 1), domain.MaxDayMinutes)
	assert.ErrorIs(t, err, store.ErrUnauthenticated)
}
