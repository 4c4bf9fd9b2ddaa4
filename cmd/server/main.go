// Package main is the entrypoint for the analyzer API server.
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

	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/analyzer"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api/handler"
	mw "github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api/middleware"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/api/response"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/cache"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/config"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/orchestrator"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/resolver"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/store"
	"github.com/marandichmax-boop/tiktok-analyzer-backend/internal/transcription"
)

const (
	shutdownTimeout = 30 * time.Second

	// Jobs older than this in a non-terminal state were stranded by a
	// previous process and get failed at startup.
	staleJobCutoff = time.Hour
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

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

	// 5. Create store and clean up jobs stranded by the last restart
	pgStore := store.NewPostgresStore(pool)

	failed, err := pgStore.FailStaleJobs(ctx, staleJobCutoff)
	if err != nil {
		return fmt.Errorf("fail stale jobs: %w", err)
	}
	if failed > 0 {
		slog.Warn("failed stale jobs from previous run", "count", failed)
	}

	// 6. Build the job pipeline
	media := resolver.New(resolver.NewExecRunner(cfg.Resolver.BinPath),
		cfg.Resolver.ProxyURL, cfg.Resolver.Timeout)

	stt := transcription.NewHTTPClient(cfg.Transcription.BaseURL, cfg.Transcription.APIKey,
		transcription.WithPollPolicy(cfg.Transcription.PollInterval, uint64(cfg.Transcription.MaxPolls)))
	if cfg.Transcription.APIKey == "" {
		slog.Warn("transcription api key not set, jobs will fail at transcription")
	}

	orch := orchestrator.New(pgStore, redisCache, media, stt,
		analyzer.New(analyzer.DefaultVocabulary()))

	// 7. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler:       healthHandler(pgStore, redisCache),
		SubmitJobHandler:    handler.NewSubmitJobHandler(orch),
		GetJobHandler:       handler.NewGetJobHandler(pgStore),
		CreateScriptHandler: handler.NewCreateScriptHandler(pgStore),
		ListScriptsHandler:  handler.NewListScriptsHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
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

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
