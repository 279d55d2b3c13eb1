package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/athenura/internhub-backend/internal/api"
	"github.com/athenura/internhub-backend/internal/certno"
	"github.com/athenura/internhub-backend/internal/config"
	"github.com/athenura/internhub-backend/internal/db"
	"github.com/athenura/internhub-backend/internal/email"
	"github.com/athenura/internhub-backend/internal/render"
	"github.com/athenura/internhub-backend/internal/store"
	"github.com/athenura/internhub-backend/internal/worker"
	"github.com/athenura/internhub-backend/internal/workflow"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// ── Store (atomic multi-step writes) ──────────────────────────────────────
	st := store.New(pool, queries)

	// ── Certificate number allocator ──────────────────────────────────────────
	alloc := certno.New(queries, cfg.CertPrefix, cfg.CertMaxAttempts, logger)

	// ── Certificate renderer ──────────────────────────────────────────────────
	// Loads the template image and script font up front: a missing asset stops
	// the server at boot, not on the first issuance.
	renderer, err := render.New(cfg.AssetsDir, cfg.OrgName)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	logger.Info("renderer ready", "assets_dir", cfg.AssetsDir)

	// ── Email (Brevo) ─────────────────────────────────────────────────────────
	mailer := email.NewBrevoClient(
		cfg.BrevoAPIKey,
		cfg.EmailFromAddr,
		cfg.EmailFromName,
		cfg.OrgName,
	)

	// ── Notification redelivery worker ────────────────────────────────────────
	runner := worker.NewRunner(mailer, worker.RunnerConfig{
		Workers:     cfg.RedeliveryWorkers,
		MaxAttempts: cfg.RedeliveryAttempts,
		SendTimeout: cfg.SendTimeout,
		BaseBackoff: cfg.RedeliveryBackoff,
	}, logger)

	// ── Workflow ──────────────────────────────────────────────────────────────
	wf := workflow.New(queries, st, alloc, renderer, mailer, runner, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		queries,
		wf,
		renderer,
		api.Config{Env: cfg.Env},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Worker and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the redelivery pool in a background goroutine. It blocks until ctx
	// is done.
	go runner.Start(ctx)

	// Start the HTTP server in a background goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool, tunes it, and verifies connectivity
// before the server starts taking traffic.
func openDB(dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	return pool, db.New(pool), nil
}
