package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/observability"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

// RetentionPruner deletes days older than the retention window
type RetentionPruner struct {
	store     store.Pruner
	logger    logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
}

// NewRetentionPruner creates a new pruner. retention must be > 0.
func NewRetentionPruner(
	st store.Pruner,
	log logger.Logger,
	interval time.Duration,
	retention time.Duration,
) *RetentionPruner {
	return &RetentionPruner{
		store:     st,
		logger:    log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic pruning process
func (rp *RetentionPruner) Start(ctx context.Context) error {
	// Run immediately on start
	if _, err := rp.Prune(ctx); err != nil {
		rp.logger.Warn("initial pruning failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(rp.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := rp.Prune(ctx); err != nil {
					rp.logger.Error("pruning failed",
						logger.Error(err))
				}
			case <-rp.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the pruner
func (rp *RetentionPruner) Stop() {
	close(rp.stopCh)
}

// Cutoff is the first date that is kept.
func (rp *RetentionPruner) Cutoff() string {
	return domain.FormatDate(rp.now().Add(-rp.retention))
}

// Prune removes every day dated before Cutoff
func (rp *RetentionPruner) Prune(ctx context.Context) (int, error) {
	cutoff := rp.Cutoff()
	rp.logger.Info("running retention pruning", logger.String("cutoff", cutoff))

	deleted, err := rp.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return deleted, err
	}
	observability.RecordPrune(deleted, rp.now())

	if deleted > 0 {
		rp.logger.Info("retention pruning completed",
			logger.String("cutoff", cutoff),
			logger.Int("activities_deleted", deleted))
	} else {
		rp.logger.Debug("no days to prune")
	}
	return deleted, nil
}
