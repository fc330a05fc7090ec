// Dengue Watch dashboard server
//
// Usage:
//
//	server                         Start the HTTP server
//	server -config denguewatch.hcl Start with settings from an HCL file
//	server -migrate                Run database migrations and exit
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/denguewatch/denguewatch/assets"
	"github.com/denguewatch/denguewatch/internal/api"
	"github.com/denguewatch/denguewatch/internal/audit"
	"github.com/denguewatch/denguewatch/internal/config"
	"github.com/denguewatch/denguewatch/internal/dashboard"
	"github.com/denguewatch/denguewatch/internal/db"
	"github.com/denguewatch/denguewatch/internal/geo"
	"github.com/denguewatch/denguewatch/internal/logging"
	"github.com/denguewatch/denguewatch/internal/metrics"
	"github.com/denguewatch/denguewatch/internal/records"
)

func main() {
	configPath := flag.String("config", "", "Path to an HCL config file")
	migrateOnly := flag.Bool("migrate", false, "Run migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Select the record store
	var (
		store    records.Store
		activity audit.Sink
		ping     func(context.Context) error
		stats    func(context.Context) (*db.StoreStats, error)
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; records are lost on restart")
		store = records.NewMemory()
		activity = audit.NewMemorySink()
	default:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer database.Close()

		if cfg.Migrate || *migrateOnly {
			if err := database.Migrate(ctx, logger); err != nil {
				logger.Fatal("failed to run migrations", "error", err)
			}
			logger.Info("migrations complete")
		}
		store, activity = database, database
		ping, stats = database.Ping, database.Stats
	}
	if *migrateOnly {
		logger.Info("migration-only mode, exiting")
		return
	}

	state := dashboard.NewState()
	instrumented := metrics.InstrumentStore(store, m)
	loader := dashboard.NewLoader(instrumented, state, logger)

	// Initial load: boundaries, snapshot and records in parallel
	var (
		bounds   *geo.Boundaries
		snapshot []records.CaseRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bounds, err = loadBoundaries(cfg.BoundariesPath)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = loadSnapshot(cfg.SnapshotPath)
		return err
	})
	g.Go(func() error {
		return loader.Refresh(gctx)
	})
	if err := g.Wait(); err != nil {
		logger.Fatal("initial load failed", "error", err)
	}
	logger.Info("initial load complete",
		"records", state.Len(),
		"regions", len(bounds.Names()),
		"snapshot_rows", len(snapshot),
	)

	apiServer := api.NewServer(api.Deps{
		Store:      instrumented,
		State:      state,
		Boundaries: bounds,
		Snapshot:   snapshot,
		Activity:   audit.NewLogger(activity, logger),
		Metrics:    m,
		Log:        logger,
		Ping:       ping,
		Stats:      stats,
	}, api.Options{
		PageSize:     cfg.PageSize,
		ImportPolicy: cfg.ImportPolicy,
		WriteRate:    cfg.WriteRate,
		WriteBurst:   cfg.WriteBurst,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("dashboard server starting", "addr", cfg.ListenAddr, "store", cfg.Store, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// loadBoundaries reads the configured boundary file, falling back to the
// bundled region set.
func loadBoundaries(path string) (*geo.Boundaries, error) {
	if path == "" {
		return geo.Parse(assets.Regions)
	}
	return geo.Load(path)
}

// loadSnapshot reads the configured snapshot file, falling back to the
// bundled dataset. The path "none" disables the snapshot.
func loadSnapshot(path string) ([]records.CaseRecord, error) {
	switch path {
	case "none":
		return nil, nil
	case "":
		return dashboard.ReadSnapshot(bytes.NewReader(assets.Dataset))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return dashboard.ReadSnapshot(f)
}
