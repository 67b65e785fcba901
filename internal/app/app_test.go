package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
	"github.com/nikhilbhutani/pdfsummarizer/internal/document"
)

func testConfig() *config.Config {
	return &config.Config{
		Documents: config.DocumentsConfig{Store: config.StoreMemory, MinFileSize: 1024},
		Storage: config.StorageConfig{
			Backend:     config.BackendSupabase,
			Bucket:      "pdfs",
			SupabaseURL: "http://127.0.0.1:1",
			SupabaseKey: "key",
		},
		LLM: config.LLMConfig{DefaultProvider: "openai"},
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestOpen_MemoryStore(t *testing.T) {
	s, err := Open(context.Background(), testConfig(), quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.NotNil(t, s.Pipeline)
	assert.NotNil(t, s.Summaries)
	assert.Empty(t, s.Checks)

	_, err = s.Documents.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, document.ErrMalformedID)
}

func TestOpen_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	s, err := Open(context.Background(), cfg, quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.Contains(t, s.Checks, "redis")
	assert.NoError(t, s.Checks["redis"](context.Background()))
}

func TestOpen_UnknownStore(t *testing.T) {
	cfg := testConfig()
	cfg.Documents.Store = "sqlite"
	_, err := Open(context.Background(), cfg, quiet())
	assert.ErrorContains(t, err, `unknown document store "sqlite"`)
}

func TestServicesCloseRunsInReverse(t *testing.T) {
	var order []int
	s := &Services{}
	s.onClose(func() error { order = append(order, 1); return nil })
	s.onClose(func() error { order = append(order, 2); return nil })
	require.NoError(t, s.Close())
	assert.Equal(t, []int{2, 1}, order)
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	assert.True(t, NewLogger("debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewLogger("warn").Enabled(ctx, slog.LevelInfo))
	assert.True(t, NewLogger("bogus").Enabled(ctx, slog.LevelInfo))
}
