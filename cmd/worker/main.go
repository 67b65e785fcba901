package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/pdfsummarizer/internal/app"
	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
	"github.com/nikhilbhutani/pdfsummarizer/internal/queue"
	"github.com/nikhilbhutani/pdfsummarizer/internal/queue/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		slog.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.Open(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to initialise services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	concurrency := cfg.LLM.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	srv := asynq.NewServer(queue.RedisOpt(cfg.Redis), asynq.Config{
		Concurrency:     concurrency,
		Logger:          newAsynqLogger(logger),
		ShutdownTimeout: cfg.Server.ShutdownGrace,
	})

	registry := queue.NewHandlersRegistry(logger)
	registry.Register(queue.TypeDocumentSummarize, workers.NewSummarizeWorker(services.Summaries, logger))

	slog.Info("starting worker", "concurrency", concurrency)
	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutting down worker...")
	srv.Shutdown()
	slog.Info("worker stopped")
}
