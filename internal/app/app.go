package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/daylog/internal/auth"
	"github.com/MrSnakeDoc/daylog/internal/catalog"
	"github.com/MrSnakeDoc/daylog/internal/config"
	"github.com/MrSnakeDoc/daylog/internal/httpserver"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/scheduler"
	"github.com/MrSnakeDoc/daylog/internal/store"
	"github.com/MrSnakeDoc/daylog/internal/tracker"
	"github.com/MrSnakeDoc/daylog/internal/version"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *httpserver.Server
	store    store.Backend
	reloader *scheduler.CatalogReloader // nil without a category file
	pruner   *scheduler.RetentionPruner // nil when retention is disabled
}

// New wires the store, the tracker, the background jobs and the HTTP server.
// The store is connected eagerly so a bad configuration fails at startup.
func New(cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	st, err := OpenStore(cfg, loggerClient)
	if err != nil {
		return nil, err
	}
	loggerClient.Info("store initialized", logger.String("backend", st.Name()))

	trk := tracker.New(st, loggerClient, tracker.Options{
		StrictCategories: cfg.StrictCategories,
		AtomicBudget:     cfg.AtomicBudget,
	})
	loggerClient.Info("tracker initialized",
		logger.Bool("strict_categories", cfg.StrictCategories),
		logger.Bool("atomic_budget", trk.Atomic()))

	cat := catalog.New()

	// Initialize catalog reloader (if a category file is configured)
	var reloader *scheduler.CatalogReloader
	var reloadTrigger chan struct{}
	if cfg.CategoryFile != "" {
		loggerClient.Info("category file configured, initializing catalog reloader",
			logger.String("file", cfg.CategoryFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewCatalogReloader(
			cfg.CategoryFile,
			cat,
			loggerClient,
			cfg.ReloadInterval,
			reloadTrigger,
		)
	} else {
		loggerClient.Info("category file not configured, using built-in catalog")
	}

	var pruner *scheduler.RetentionPruner
	if cfg.Retention > 0 {
		pruner = scheduler.NewRetentionPruner(st, loggerClient, cfg.RetentionInterval, cfg.Retention)
	}

	// Dependencies passed to routes
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RequestTimeout: cfg.RequestTimeout,
		RateBurst:      cfg.RateBurst,
		RatePerMin:     cfg.RatePerMin,
		Auth:           auth.Config{Secret: cfg.AuthSecret, Issuer: cfg.AuthIssuer},
		Store:          st,
		Tracker:        trk,
		Catalog:        cat,
		ReloadTrigger:  reloadTrigger,
	}

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   httpserver.New(cfg, loggerClient, d),
		store:    st,
		reloader: reloader,
		pruner:   pruner,
	}, nil
}

// Run serves until SIGINT/SIGTERM or a server error, then shuts down within
// DAYLOG_SHUTDOWN_TIMEOUT and closes the store.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting daylog %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.closeStore()

	// Start catalog reloader (loads the file and starts periodic refresh)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start catalog reloader: %w", err)
		}
		a.logger.Info("catalog reloader started",
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	if a.pruner != nil {
		if err := a.pruner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention pruner: %w", err)
		}
		a.logger.Info("retention pruner started",
			logger.Duration("retention", a.cfg.Retention),
			logger.Duration("interval", a.cfg.RetentionInterval))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("⏳ Shutting down gracefully...")

		if a.reloader != nil {
			a.reloader.Stop()
		}
		if a.pruner != nil {
			a.pruner.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("✅ daylog stopped cleanly")
	return nil
}

func (a *App) closeStore() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store",
			logger.String("backend", a.store.Name()),
			logger.Error(err))
		return
	}
	a.logger.Info("✅ store closed cleanly", logger.String("backend", a.store.Name()))
}
