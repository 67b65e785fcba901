package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type Client struct {
	client enqueuer
	logger *slog.Logger
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig, logger *slog.Logger) *Client {
	return newClient(asynq.NewClient(RedisOpt(cfg)), logger)
}

func newClient(e enqueuer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{client: e, logger: logger}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueDocumentSummarize schedules a summary of a ready document. A
// document is queued at most once while its task is retained.
func (c *Client) EnqueueDocumentSummarize(ctx context.Context, payload DocumentSummarizePayload) error {
	return c.enqueue(ctx, TypeDocumentSummarize, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.TaskID("summarize:"+payload.DocumentID),
		asynq.Retention(24*time.Hour),
	)
}

// SummarizeOnFinalize is a document.FinalizeHook that queues a summary of
// every finalized document. Enqueue failures are logged only.
func (c *Client) SummarizeOnFinalize(ctx context.Context, doc *models.Document) {
	err := c.EnqueueDocumentSummarize(ctx, DocumentSummarizePayload{DocumentID: doc.ID})
	if err != nil {
		c.logger.WarnContext(ctx, "enqueue summary failed", "doc_id", doc.ID, "error", err)
		return
	}
	c.logger.InfoContext(ctx, "summary enqueued", "doc_id", doc.ID)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
