package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
)

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	defaultModel     string
	fallbackProvider string
	logger           *slog.Logger
}

// NewGateway registers every provider with credentials in cfg. Vertex AI is
// enabled when a GCP project is configured.
func NewGateway(ctx context.Context, cfg config.LLMConfig, gcp config.GCPConfig, logger *slog.Logger) (Gateway, error) {
	var providers []Provider

	if cfg.OpenAIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL))
	}
	if cfg.AnthropicKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicBaseURL))
	}
	if cfg.OllamaURL != "" {
		providers = append(providers, NewOllamaProvider(cfg.OllamaURL))
	}
	if gcp.ProjectID != "" {
		v, err := NewVertexProvider(ctx, gcp.ProjectID, gcp.Region, cfg.VertexModel)
		if err != nil {
			return nil, fmt.Errorf("init vertex provider: %w", err)
		}
		providers = append(providers, v)
	}

	return newGateway(logger, cfg.DefaultProvider, cfg.DefaultModel, cfg.FallbackProvider, providers...), nil
}

func newGateway(logger *slog.Logger, defaultProvider, defaultModel, fallbackProvider string, providers ...Provider) *gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &gateway{
		providers:        make(map[string]Provider, len(providers)),
		defaultProvider:  defaultProvider,
		defaultModel:     defaultModel,
		fallbackProvider: fallbackProvider,
		logger:           logger,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

// Chat sends req to its provider, or the default one. A failed call is
// repeated once on the fallback provider with that provider's default model.
func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
		if req.Model == "" {
			req.Model = g.defaultModel
		}
	}

	resp, err := g.chat(ctx, providerName, req)
	if err != nil && g.fallbackProvider != "" && g.fallbackProvider != providerName && ctx.Err() == nil {
		g.logger.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		req.Model = ""
		return g.chat(ctx, g.fallbackProvider, req)
	}
	return resp, err
}

func (g *gateway) chat(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}
	if req.Model == "" {
		if models := p.Models(); len(models) > 0 {
			req.Model = models[0]
		}
	}

	resp, err := p.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Content == "" {
		return nil, fmt.Errorf("%s %s: %w", providerName, req.Model, ErrNoContent)
	}
	return resp, nil
}

func (g *gateway) ListModels() []ModelInfo {
	var models []ModelInfo
	for _, p := range g.providers {
		for _, m := range p.Models() {
			models = append(models, ModelInfo{Provider: p.Name(), Model: m})
		}
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Model < models[j].Model
	})
	return models
}
