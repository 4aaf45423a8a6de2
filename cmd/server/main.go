// Package main is the entrypoint for the credo API server.
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

	"github.com/credo-sh/credo/internal/api"
	"github.com/credo-sh/credo/internal/api/handler"
	mw "github.com/credo-sh/credo/internal/api/middleware"
	"github.com/credo-sh/credo/internal/api/response"
	"github.com/credo-sh/credo/internal/cache"
	"github.com/credo-sh/credo/internal/config"
	"github.com/credo-sh/credo/internal/directory"
	"github.com/credo-sh/credo/internal/gateway"
	"github.com/credo-sh/credo/internal/lifecycle"
	"github.com/credo-sh/credo/internal/metrics"
	"github.com/credo-sh/credo/internal/store"
	"github.com/credo-sh/credo/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

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
	slog.Info("config loaded", "env", cfg.Server.Env, "auth_mode", cfg.Auth.Mode,
		"directory_backend", cfg.Auth.DirectoryBackend)

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

	// 5. Build the credential store, lifecycle engine and directory
	pgStore := store.NewPostgresStore(pool)
	svc := lifecycle.NewService(pgStore)

	dir, err := directory.New(cfg.Auth, pgStore, nil)
	if err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	// 6. Downstream gateway client
	gw := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout)

	// 7. Build router with dependencies
	m := metrics.New()
	devTenant := models.TenantContext{
		ClientID:         cfg.Auth.DevTenant,
		AllowedDatabases: cfg.Auth.DevDatabases,
	}

	deps := api.Dependencies{
		Metrics:    m,
		TenantAuth: mw.NewTenantAuth(dir, cfg.DevBypass(), devTenant, m),
		Installer:  mw.NewInstaller(cfg.Auth.InstallerKey, cfg.DevBypass(), m),
		RateLimit:  mw.NewRateLimit(redisCache, cfg.Auth.RequestsPerMin),

		Keys:  handler.NewKeys(svc, m),
		Reach: handler.NewReach(svc),
		Data:  handler.NewData(gw),

		StatusHandler:  statusHandler(),
		HealthHandler:  healthHandler(pgStore, redisCache),
		MetricsHandler: promhttp.Handler(),
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

// statusHandler serves the unauthenticated root status page.
func statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{
			"service": "credo",
			"status":  "ok",
		})
	}
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
