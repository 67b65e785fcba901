package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilbhutani/pdfsummarizer/internal/api"
	"github.com/nikhilbhutani/pdfsummarizer/internal/app"
	"github.com/nikhilbhutani/pdfsummarizer/internal/auth"
	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
	"github.com/nikhilbhutani/pdfsummarizer/internal/queue"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.Open(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to initialise services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	if cfg.Documents.AutoSummarize {
		qc := queue.NewClient(cfg.Redis, logger)
		defer qc.Close()
		services.Pipeline.OnFinalized(qc.SummarizeOnFinalize)
		slog.Info("auto-summarize enabled")
	}

	router := api.NewRouter(cfg.Server, api.Deps{
		Documents: services.Documents,
		Summaries: services.Summaries,
		Issuer:    auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Checks:    services.Checks,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(ctx),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(),
			"document_store", cfg.Documents.Store,
			"object_store", cfg.Storage.Backend,
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
		return
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
