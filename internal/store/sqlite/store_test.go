package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/store"
	"github.com/MrSnakeDoc/daylog/internal/store/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "daylog.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend { return openTemp(t) })
}

func TestOpenCreatesDirectoryAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "daylog.db")
	ctx := context.Background()
	day := domain.Day{UserID: "u1", Date: "2026-10-17"}

	s, err := Open(path, logger.Nop())
	require.NoError(t, err)
	_, err = s.Add(ctx, day, domain.ActivityInput{Name: "Read", Category: domain.CategoryStudy, Duration: 40})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are idempotent and data survives a reopen
	s, err = Open(path, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	acts, err := s.List(ctx, day)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "Read", acts[0].Name)
	assert.Equal(t, 40, acts[0].Duration)
}

func TestConcurrentGuardedAddsRespectBudget(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	day := domain.Day{UserID: "u1", Date: "2026-10-17"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddWithinBudget(ctx, day, domain.ActivityInput{Name: "x", Category: domain.CategoryWork, Duration: 100}, domain.MaxDayMinutes)
		}()
	}
	wg.Wait()

	acts, err := s.List(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1400, domain.TotalMinutes(acts))
}

func TestPingAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "daylog.db"), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrUnavailable)
}
