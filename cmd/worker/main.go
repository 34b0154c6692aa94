// Package main is the entrypoint for the InsightQ batch worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/meghanaraju/insightq/internal/backend"
	"github.com/meghanaraju/insightq/internal/batch"
	"github.com/meghanaraju/insightq/internal/config"
	"github.com/meghanaraju/insightq/internal/queue"
	"github.com/meghanaraju/insightq/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"provider", cfg.Backend.Provider,
		"max_concurrent", cfg.Worker.MaxConcurrent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	workQueue, err := queue.NewRedisQueue(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create work queue: %w", err)
	}
	defer workQueue.Close()

	if err := workQueue.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	provider, err := backend.NewProvider(cfg.Backend)
	if err != nil {
		return fmt.Errorf("create analysis provider: %w", err)
	}
	slog.Info("analysis provider initialized", "provider", provider.Name())

	pgStore := store.NewPostgresStore(pool)
	runner := batch.NewRunner(pgStore, workQueue, provider, cfg.Worker, slog.Default())
	workerPool := batch.NewPool(workQueue, runner, cfg.Worker, slog.Default())

	if err := workerPool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker pool: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}
