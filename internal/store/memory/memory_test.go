package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/store"
	"github.com/MrSnakeDoc/daylog/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend { return New() })
}

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.Name() != "memory" {
		t.Errorf("Name() = %q, want memory", s.Name())
	}
}

func TestListReturnsSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := domain.Day{UserID: "u1", Date: "2026-10-17"}

	if _, err := s.Add(ctx, d, domain.ActivityInput{Name: "a", Category: domain.CategoryWork, Duration: 10}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	first, _ := s.List(ctx, d)
	first[0].Duration = 999

	second, _ := s.List(ctx, d)
	if second[0].Duration != 10 {
		t.Errorf("List() should return copies, stored duration changed to %d", second[0].Duration)
	}
}

func TestSameTimestampStillNewestFirst(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx := context.Background()
	d := domain.Day{UserID: "u1", Date: "2026-10-17"}
	ids := make([]string, 0, 3)
	for _, name := range []string{"one", "two", "three"} {
		id, err := s.Add(ctx, d, domain.ActivityInput{Name: name, Category: domain.CategoryWork, Duration: 5})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		ids = append(ids, id)
	}

	acts, _ := s.List(ctx, d)
	for i, a := range acts {
		if want := ids[len(ids)-1-i]; a.ID != want {
			t.Errorf("List()[%d].ID = %s, want %s", i, a.ID, want)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := domain.Day{UserID: "u1", Date: "2026-10-17"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, d, domain.ActivityInput{Name: "x", Category: domain.CategoryWork, Duration: 1})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.List(ctx, d)
		}()
	}
	wg.Wait()

	acts, _ := s.List(ctx, d)
	if len(acts) != 100 {
		t.Errorf("concurrent Add() stored %d activities, want 100", len(acts))
	}
}

func TestConcurrentGuardedAddsRespectBudget(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := domain.Day{UserID: "u1", Date: "2026-10-17"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddWithinBudget(ctx, d, domain.ActivityInput{Name: "x", Category: domain.CategoryWork, Duration: 100}, domain.MaxDayMinutes)
		}()
	}
	wg.Wait()

	acts, _ := s.List(ctx, d)
	if total := domain.TotalMinutes(acts); total != 1400 {
		t.Errorf("guarded total = %d, want 1400", total)
	}
}
