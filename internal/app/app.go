// Package app assembles the services shared by the API server and the worker
// from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/pdfsummarizer/internal/api/handlers"
	"github.com/nikhilbhutani/pdfsummarizer/internal/cache"
	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
	"github.com/nikhilbhutani/pdfsummarizer/internal/database"
	"github.com/nikhilbhutani/pdfsummarizer/internal/document"
	"github.com/nikhilbhutani/pdfsummarizer/internal/llm"
	"github.com/nikhilbhutani/pdfsummarizer/internal/storage"
	"github.com/nikhilbhutani/pdfsummarizer/internal/summary"
	"github.com/nikhilbhutani/pdfsummarizer/migrations"
)

// NewLogger returns a JSON logger at the named level. Unknown levels fall
// back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// Services is the wired application. Close releases every client it opened.
type Services struct {
	Pipeline  *document.Pipeline
	Documents *document.Service
	Summaries *summary.Service
	Checks    map[string]handlers.Check

	closers []func() error
}

func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func (s *Services) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Open connects the record store, object store, cache and LLM gateway
// selected by cfg. On error everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Services, err error) {
	s := &Services{Checks: make(map[string]handlers.Check)}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	repo, err := s.openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	objects, err := s.openObjectStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	rc := s.openCache(ctx, cfg.Redis, logger)

	s.Pipeline = document.NewPipeline(
		repo,
		storage.NewAdapter(objects, cfg.Storage.KeyPrefix, storage.DefaultKeySuffix),
		document.NewValidator(cfg.Documents.MinFileSize),
		document.NewTextExtractor(),
		logger,
	)

	var docCache document.DocumentCache
	var resultCache summary.ResultCache
	if rc != nil {
		docCache, resultCache = rc, rc
	}
	s.Documents = document.NewService(repo, s.Pipeline, docCache, logger)

	gateway, err := llm.NewGateway(ctx, cfg.LLM, cfg.GCP, logger)
	if err != nil {
		return nil, err
	}
	summarizer := summary.NewSummarizer(gateway, resultCache, summary.Options{
		ChunkTokens:     cfg.LLM.ChunkTokens,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Concurrency:     cfg.LLM.Concurrency,
	}, logger)
	s.Summaries = summary.NewService(s.Documents, summarizer)

	return s, nil
}

func (s *Services) openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (document.Repository, error) {
	switch cfg.Documents.Store {
	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.onClose(func() error { pool.Close(); return nil })
		s.Checks["database"] = pool.Ping

		if err := database.RunMigrations(ctx, pool, migrationFS(cfg.Database.MigrationsPath), logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return document.NewPostgresRepository(pool), nil

	case config.StoreFirestore:
		client, err := firestore.NewClient(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		s.onClose(client.Close)
		return document.NewFirestoreRepository(client, cfg.Documents.Collection), nil

	case config.StoreMemory:
		logger.Warn("using in-memory document store; records are lost on restart")
		return document.NewMemoryRepository(), nil
	}
	return nil, fmt.Errorf("unknown document store %q", cfg.Documents.Store)
}

func migrationFS(path string) fs.FS {
	if path == "" {
		return migrations.FS
	}
	return os.DirFS(path)
}

func (s *Services) openObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Endpoint:        cfg.S3Endpoint,
		})

	case config.BackendGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		s.onClose(client.Close)
		return storage.NewGCSStorage(client, cfg.Bucket)

	case config.BackendSupabase:
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	}
	return nil, fmt.Errorf("unknown object store %q", cfg.Backend)
}

// openCache returns nil when Redis is not configured or not reachable.
func (s *Services) openCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *cache.Cache {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s.onClose(rdb.Close)

	c := cache.NewCache(rdb, cfg.CacheTTL)
	s.Checks["redis"] = c.Ping
	if err := c.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, running without cache", "error", err)
		return nil
	}
	return c
}
