// Package main is the entrypoint for the kafkaops API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/internal/action/ci"
	"github.com/kiranshivaraju/kafkaops/internal/action/cloudhealth"
	"github.com/kiranshivaraju/kafkaops/internal/action/kafka"
	"github.com/kiranshivaraju/kafkaops/internal/api"
	"github.com/kiranshivaraju/kafkaops/internal/api/handler"
	mw "github.com/kiranshivaraju/kafkaops/internal/api/middleware"
	"github.com/kiranshivaraju/kafkaops/internal/api/response"
	"github.com/kiranshivaraju/kafkaops/internal/cache"
	"github.com/kiranshivaraju/kafkaops/internal/config"
	"github.com/kiranshivaraju/kafkaops/internal/jenkins"
	"github.com/kiranshivaraju/kafkaops/internal/logging"
	"github.com/kiranshivaraju/kafkaops/internal/runs"
	"github.com/kiranshivaraju/kafkaops/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	slog.Info("config loaded", "env", cfg.Server.Env, "jenkins_url", cfg.Jenkins.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Job client and action catalogue
	jobs := jenkins.NewHTTPClient(cfg.Jenkins, logger)
	if err := jobs.Ping(ctx); err != nil {
		slog.Warn("jenkins not reachable at startup", "error", err)
	}

	registry, err := newRegistry(jobs, logger)
	if err != nil {
		return fmt.Errorf("register actions: %w", err)
	}
	slog.Info("actions registered", "count", len(registry.List()))

	// 6. Create store and run service
	pgStore := store.NewPostgresStore(pool)
	runService := runs.NewService(registry, pgStore, redisCache, cfg.Runs.StatusTTL, logger)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),

		HealthHandler:      healthHandler(pgStore, redisCache, jobs),
		ListActionsHandler: handler.NewListActionsHandler(registry),
		InvokeHandler:      handler.NewInvokeActionHandler(registry),
		StartRunHandler:    handler.NewStartRunHandler(runService),
		ListRunsHandler:    handler.NewListRunsHandler(runService),
		GetRunHandler:      handler.NewGetRunHandler(runService),
		RunStatusHandler:   handler.NewRunStatusHandler(runService),
		CreateKeyHandler:   handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:    handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:   handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Jenkins.Poll.WaitTimeout + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := runService.Wait(shutdownCtx); err != nil {
		slog.Warn("runs did not finish before shutdown", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newRegistry registers every action the server exposes.
func newRegistry(jobs jenkins.Client, logger *slog.Logger) (*action.Registry, error) {
	registry := action.NewRegistry()
	if err := registry.Register(kafka.NewService(jobs, logger).Actions()...); err != nil {
		return nil, err
	}
	if err := registry.Register(cloudhealth.Actions()...); err != nil {
		return nil, err
	}
	if err := registry.Register(ci.NewService(jobs, logger).Actions()...); err != nil {
		return nil, err
	}
	return registry, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database, cache and jenkins connectivity.
func healthHandler(db, c, jobs pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps := map[string]pinger{"database": db, "cache": c, "jenkins": jobs}
		checks := make(map[string]string, len(deps))
		degraded := false
		for name, p := range deps {
			checks[name] = "ok"
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "degraded"
				degraded = true
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, response.CodeDegraded,
				"One or more services degraded", checks)
			return
		}

		response.OK(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
