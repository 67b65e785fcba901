package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/pdfsummarizer/internal/document"
	"github.com/nikhilbhutani/pdfsummarizer/internal/queue"
	"github.com/nikhilbhutani/pdfsummarizer/internal/summary"
)

type fakeSummaries struct {
	gotID  string
	gotReq summary.Request
	err    error
}

func (f *fakeSummaries) SummarizeDocument(_ context.Context, id string, req summary.Request) (*summary.Result, error) {
	f.gotID, f.gotReq = id, req
	if f.err != nil {
		return nil, f.err
	}
	return &summary.Result{DocumentID: id, Content: "s"}, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func task(payload string) *asynq.Task {
	return asynq.NewTask(queue.TypeDocumentSummarize, []byte(payload))
}

func TestSummarizeWorker_Success(t *testing.T) {
	fs := &fakeSummaries{}
	w := NewSummarizeWorker(fs, quiet())

	require.NoError(t, w.ProcessTask(context.Background(), task(`{"document_id":"d1","provider":"vertex"}`)))
	assert.Equal(t, "d1", fs.gotID)
	assert.Equal(t, summary.Request{Provider: "vertex"}, fs.gotReq)
}

func TestSummarizeWorker_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		err       error
		skipRetry bool
	}{
		{"bad payload", `{`, nil, true},
		{"missing document", `{"document_id":"d1"}`, document.ErrNotFound, true},
		{"not ready", `{"document_id":"d1"}`, document.ErrNotReady, true},
		{"malformed id", `{"document_id":"x"}`, document.ErrMalformedID, true},
		{"llm outage", `{"document_id":"d1"}`, errors.New("LLM generation failed: 503"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSummarizeWorker(&fakeSummaries{err: tt.err}, quiet())

			err := w.ProcessTask(context.Background(), task(tt.payload))
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}
