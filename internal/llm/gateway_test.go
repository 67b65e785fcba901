package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name   string
	models []string
	reply  string
	err    error
	got    []ChatRequest
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Models() []string { return f.models }

func (f *fakeProvider) ChatCompletion(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ChatResponse{Provider: f.name, Model: req.Model, Content: f.reply}, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestGateway_DefaultProviderAndModel(t *testing.T) {
	primary := &fakeProvider{name: "openai", models: []string{"gpt-4o-mini"}, reply: "ok"}
	g := newGateway(discard(), "openai", "", "", primary)

	resp, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{User("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	require.Len(t, primary.got, 1)
	assert.Equal(t, "gpt-4o-mini", primary.got[0].Model)
}

func TestGateway_ConfiguredDefaultModel(t *testing.T) {
	primary := &fakeProvider{name: "openai", models: []string{"gpt-4o-mini"}, reply: "ok"}
	g := newGateway(discard(), "openai", "gpt-4o", "", primary)

	_, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{User("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", primary.got[0].Model)
}

func TestGateway_FallsBackOnce(t *testing.T) {
	primary := &fakeProvider{name: "openai", models: []string{"gpt-4o-mini"}, err: errors.New("rate limited")}
	fallback := &fakeProvider{name: "ollama", models: []string{"llama3"}, reply: "local answer"}
	g := newGateway(discard(), "openai", "", "ollama", primary, fallback)

	resp, err := g.Chat(context.Background(), ChatRequest{Model: "gpt-4o", Messages: []Message{User("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "local answer", resp.Content)
	assert.Len(t, primary.got, 1)
	require.Len(t, fallback.got, 1)
	assert.Equal(t, "llama3", fallback.got[0].Model)
}

func TestGateway_NoFallbackReturnsError(t *testing.T) {
	primary := &fakeProvider{name: "openai", models: []string{"gpt-4o-mini"}, err: errors.New("boom")}
	g := newGateway(discard(), "openai", "", "", primary)

	_, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{User("hi")}})
	assert.EqualError(t, err, "boom")
	assert.Len(t, primary.got, 1)
}

func TestGateway_EmptyContentIsAnError(t *testing.T) {
	g := newGateway(discard(), "openai", "", "", &fakeProvider{name: "openai", models: []string{"m"}})

	_, err := g.Chat(context.Background(), ChatRequest{Messages: []Message{User("hi")}})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestGateway_UnknownProvider(t *testing.T) {
	g := newGateway(discard(), "openai", "", "")

	_, err := g.Chat(context.Background(), ChatRequest{Provider: "mystery"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"mystery" not configured`)
}

func TestGateway_CancelledContextSkipsFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", models: []string{"m"}, err: context.Canceled}
	fallback := &fakeProvider{name: "ollama", models: []string{"llama3"}, reply: "x"}
	g := newGateway(discard(), "openai", "", "ollama", primary, fallback)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Chat(ctx, ChatRequest{Messages: []Message{User("hi")}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fallback.got)
}

func TestGateway_ListModelsSorted(t *testing.T) {
	g := newGateway(discard(), "", "", "",
		&fakeProvider{name: "openai", models: []string{"gpt-4o", "gpt-4o-mini"}},
		&fakeProvider{name: "anthropic", models: []string{"claude-3-haiku-20240307"}},
	)

	assert.Equal(t, []ModelInfo{
		{Provider: "anthropic", Model: "claude-3-haiku-20240307"},
		{Provider: "openai", Model: "gpt-4o"},
		{Provider: "openai", Model: "gpt-4o-mini"},
	}, g.ListModels())
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.00015+0.0006, CalculateCost("gpt-4o-mini", 1000, 1000), 1e-12)
	assert.Zero(t, CalculateCost("llama3", 1000, 1000))
}
