package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestClient_EnqueueDocumentSummarize(t *testing.T) {
	fe := &fakeEnqueuer{}
	c := newClient(fe, quiet())

	require.NoError(t, c.EnqueueDocumentSummarize(context.Background(), DocumentSummarizePayload{DocumentID: "d1", Model: "gpt-4o"}))

	require.Len(t, fe.tasks, 1)
	assert.Equal(t, TypeDocumentSummarize, fe.tasks[0].Type())
	var got DocumentSummarizePayload
	require.NoError(t, json.Unmarshal(fe.tasks[0].Payload(), &got))
	assert.Equal(t, DocumentSummarizePayload{DocumentID: "d1", Model: "gpt-4o"}, got)

	var taskID string
	for _, o := range fe.opts[0] {
		if o.Type() == asynq.TaskIDOpt {
			taskID = o.Value().(string)
		}
	}
	assert.Equal(t, "summarize:d1", taskID)
}

func TestClient_EnqueueErrorIsWrapped(t *testing.T) {
	c := newClient(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, quiet())

	err := c.EnqueueDocumentSummarize(context.Background(), DocumentSummarizePayload{DocumentID: "d1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.ErrTaskIDConflict))
	assert.Contains(t, err.Error(), TypeDocumentSummarize)
}

func TestClient_SummarizeOnFinalizeSwallowsErrors(t *testing.T) {
	fe := &fakeEnqueuer{}
	c := newClient(fe, quiet())
	c.SummarizeOnFinalize(context.Background(), &models.Document{ID: "d2"})
	assert.Len(t, fe.tasks, 1)

	failing := newClient(&fakeEnqueuer{err: errors.New("redis down")}, quiet())
	assert.NotPanics(t, func() {
		failing.SummarizeOnFinalize(context.Background(), &models.Document{ID: "d3"})
	})
}

func TestHandlersRegistry_RoutesByType(t *testing.T) {
	reg := NewHandlersRegistry(quiet())
	var got string
	reg.Register(TypeDocumentSummarize, asynq.HandlerFunc(func(_ context.Context, t *asynq.Task) error {
		got = string(t.Payload())
		return nil
	}))

	err := reg.Mux().ProcessTask(context.Background(), asynq.NewTask(TypeDocumentSummarize, []byte(`{"document_id":"x"}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"document_id":"x"}`, got)

	err = reg.Mux().ProcessTask(context.Background(), asynq.NewTask("unknown:type", nil))
	assert.Error(t, err)
}
