// Package main is the entrypoint for the job tracker API server.
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

	"github.com/kiranshivaraju/jobtracker/internal/api"
	"github.com/kiranshivaraju/jobtracker/internal/api/handler"
	mw "github.com/kiranshivaraju/jobtracker/internal/api/middleware"
	"github.com/kiranshivaraju/jobtracker/internal/api/response"
	"github.com/kiranshivaraju/jobtracker/internal/cache"
	"github.com/kiranshivaraju/jobtracker/internal/config"
	"github.com/kiranshivaraju/jobtracker/internal/store"
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
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	pgStore := store.NewPostgresStore(pool)
	router := api.NewRouter(dependencies(cfg, pgStore, redisCache))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// cacheCounter is what the server needs from Redis: health pings and rate
// limit counters.
type cacheCounter interface {
	cache.Cache
	cache.Counter
}

func dependencies(cfg *config.Config, s store.Store, c cacheCounter) api.Dependencies {
	sessions := handler.NewSessions(s, cfg.Auth.SessionTTL, cfg.Auth.RefreshTTL)
	return api.Dependencies{
		Auth:        mw.NewAuth(s),
		RateLimit:   mw.NewRateLimit(c, cfg.Server.RateLimitPerMinute),
		CORSOrigins: cfg.Server.CORSAllowedOrigins,

		HealthHandler:    healthHandler(s, c),
		AnonymousHandler: sessions.Anonymous,
		RefreshHandler:   sessions.Refresh,

		ListJobs:    handler.NewListJobsHandler(s),
		GetJob:      handler.NewGetJobHandler(s),
		CreateJob:   handler.NewCreateJobHandler(s),
		UpdateJob:   handler.NewUpdateJobHandler(s),
		DeleteJob:   handler.NewDeleteJobHandler(s),
		ReorderJobs: handler.NewReorderJobsHandler(s),

		CreateComment: handler.NewCreateCommentHandler(s),
		UpdateComment: handler.NewUpdateCommentHandler(s),
		DeleteComment: handler.NewDeleteCommentHandler(s),
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

		if checks["database"] != "ok" || checks["cache"] != "ok" {
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
