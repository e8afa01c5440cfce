package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/compete-engine/internal/api"
	"github.com/terra-clan/compete-engine/internal/catalog"
	"github.com/terra-clan/compete-engine/internal/config"
	"github.com/terra-clan/compete-engine/internal/explore"
	"github.com/terra-clan/compete-engine/internal/facet"
	"github.com/terra-clan/compete-engine/internal/logging"
	"github.com/terra-clan/compete-engine/internal/saved"
	"github.com/terra-clan/compete-engine/internal/storage"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	slog.Info("starting compete-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.DSN != "",
		"redis", cfg.Redis.Address != "",
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Load the YAML catalog
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load catalog from dir", "dir", cfg.Catalog.Dir, "error", err)
	}
	slog.Info("catalog loaded", "dir", cfg.Catalog.Dir, "competitions", loader.Len())

	var (
		source  catalog.Source = loader
		repo    *storage.PostgresRepository
		backend *saved.PostgresBackend
	)

	if cfg.Database.DSN != "" {
		// Run database migrations
		slog.Info("running database migrations")
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		// Initialize database repository
		repo, err = storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
			MaxLifetime:  cfg.Database.MaxLifetime,
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected successfully")

		if cfg.Catalog.Import {
			n, err := repo.UpsertCompetitions(initCtx, loader.List())
			if err != nil {
				slog.Error("failed to import catalog", "error", err)
				os.Exit(1)
			}
			slog.Info("catalog imported", "competitions", n)
		}
		source = repo

		backend, err = saved.NewPostgresBackend(initCtx, cfg.Database.DSN, cfg.Saved.UserID)
		if err != nil {
			slog.Error("failed to create saved backend", "error", err)
			os.Exit(1)
		}
	}

	var checks []explore.HealthCheck
	if backend != nil {
		checks = append(checks, explore.HealthCheck{Name: "saved backend", Check: backend.HealthCheck})
	}

	// Local saved-items state
	var sink saved.Sink = saved.NewMemorySink()
	if cfg.Redis.Address != "" {
		redisSink, err := saved.NewRedisSink(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.KeyPrefix, cfg.Saved.UserID)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisSink.Close()
		slog.Info("redis connected successfully", "key", redisSink.Key())
		sink = redisSink
		checks = append(checks, explore.HealthCheck{Name: "saved sink", Check: redisSink.HealthCheck})
	}

	clock := urgency.SystemClock{}
	store, err := saved.NewStore(initCtx, sink, clock)
	if err != nil {
		slog.Error("failed to load saved items", "error", err)
		os.Exit(1)
	}

	quick := facet.DefaultRegistry()
	quick.Register(facet.QuickEndingSoon, facet.EndingSoon(cfg.Urgency.EndingSoonDays))

	opts := []explore.Option{
		explore.WithEngine(facet.NewEngine(quick)),
		explore.WithPolicy(urgency.Policy{
			CriticalBelow: cfg.Urgency.CriticalBelow,
			UrgentBelow:   cfg.Urgency.UrgentBelow,
		}),
		explore.WithPanicDays(cfg.Urgency.PanicDays),
		explore.WithHealthChecks(checks...),
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if backend != nil {
		syncer := saved.NewSyncer(store, backend, cfg.Saved.SyncInterval,
			saved.WithMaxAttempts(cfg.Saved.MaxAttempts),
			saved.WithCatalogIDs(catalogIDs(source)),
		)
		opts = append(opts, explore.WithSyncer(syncer))

		// Start sync worker
		syncer.Start(ctx)
	}

	explorer := explore.New(source, store, opts...)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, explorer,
		api.WithClock(clock),
		api.WithStreamRefresh(cfg.Stream.RefreshInterval),
	)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if backend != nil {
		if err := backend.Close(); err != nil {
			slog.Error("saved backend close error", "error", err)
		}
	}
	if repo != nil {
		if err := repo.Close(); err != nil {
			slog.Error("repository close error", "error", err)
		}
	}

	slog.Info("compete-engine stopped")
}

// catalogIDs lists the ids currently served by source
func catalogIDs(source catalog.Source) func(ctx context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		list, err := source.Competitions(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(list))
		for _, c := range list {
			ids = append(ids, c.ID)
		}
		return ids, nil
	}
}
