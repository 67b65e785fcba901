package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/pdfsummarizer/internal/document"
	"github.com/nikhilbhutani/pdfsummarizer/internal/queue"
	"github.com/nikhilbhutani/pdfsummarizer/internal/summary"
)

type DocumentSummarizer interface {
	SummarizeDocument(ctx context.Context, id string, req summary.Request) (*summary.Result, error)
}

type SummarizeWorker struct {
	summaries DocumentSummarizer
	logger    *slog.Logger
}

func NewSummarizeWorker(summaries DocumentSummarizer, logger *slog.Logger) *SummarizeWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarizeWorker{summaries: summaries, logger: logger}
}

// ProcessTask summarizes the document named in the payload. Failures that a
// retry cannot fix are returned wrapped in asynq.SkipRetry.
func (w *SummarizeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentSummarizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	res, err := w.summaries.SummarizeDocument(ctx, payload.DocumentID, summary.Request{
		Provider: payload.Provider,
		Model:    payload.Model,
	})
	if err != nil {
		if permanent(err) {
			return fmt.Errorf("summarize %s: %v: %w", payload.DocumentID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("summarize %s: %w", payload.DocumentID, err)
	}

	w.logger.InfoContext(ctx, "document summary stored",
		"doc_id", payload.DocumentID,
		"provider", res.Provider,
		"model", res.Model,
		"chunks", res.Chunks,
		"cached", res.Cached,
	)
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, document.ErrNotFound) ||
		errors.Is(err, document.ErrMalformedID) ||
		errors.Is(err, document.ErrNotReady) ||
		errors.Is(err, summary.ErrNoText)
}
