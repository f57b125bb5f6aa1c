package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/daylog/internal/catalog"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/observability"
)

// CatalogReloader handles periodic reloading of the category file
type CatalogReloader struct {
	loader        *catalog.Loader
	catalog       *catalog.Catalog
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewCatalogReloader creates a new catalog reloader
func NewCatalogReloader(
	categoryFile string,
	cat *catalog.Catalog,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *CatalogReloader {
	return &CatalogReloader{
		loader:        catalog.NewLoader(categoryFile),
		catalog:       cat,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the file once, then keeps reloading it on the ticker and on manual triggers
func (cr *CatalogReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := cr.Reload(ctx); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	ticker := time.NewTicker(cr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload categories",
						logger.Error(err))
				}
			case <-cr.manualTrigger:
				cr.logger.Info("manual reload triggered")
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload categories",
						logger.Error(err))
				}
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (cr *CatalogReloader) Stop() {
	close(cr.stopCh)
}

// Reload reads the category file and swaps it into the catalog.
// On error the catalog keeps its previous entries.
func (cr *CatalogReloader) Reload(_ context.Context) error {
	cr.logger.Debug("reloading categories", logger.String("file", cr.loader.Path()))

	entries, err := cr.loader.Load()
	observability.RecordCatalogReload(err)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	cr.catalog.Apply(cr.loader.Path(), entries)
	cr.logger.Info("loaded categories",
		logger.String("file", cr.loader.Path()),
		logger.Int("overrides", len(entries)))
	return nil
}
