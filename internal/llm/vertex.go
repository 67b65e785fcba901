package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

// VertexProvider serves Gemini models through Vertex AI.
type VertexProvider struct {
	client *genai.Client
	model  string
}

func NewVertexProvider(ctx context.Context, projectID, region, model string) (*VertexProvider, error) {
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &VertexProvider{client: client, model: model}, nil
}

func (p *VertexProvider) Name() string { return "vertex" }

func (p *VertexProvider) Models() []string {
	models := []string{p.model}
	for _, m := range []string{"gemini-1.5-flash", "gemini-1.5-pro"} {
		if m != p.model {
			models = append(models, m)
		}
	}
	return models
}

func (p *VertexProvider) Close() error { return p.client.Close() }

func (p *VertexProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := p.client.GenerativeModel(req.Model)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}

	var system []genai.Part
	var history []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, genai.Text(m.Content))
		case "user":
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		case "assistant":
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return nil, fmt.Errorf("vertex chat: last message must come from the user")
	}

	chat := model.StartChat()
	chat.History = history[:len(history)-1]
	resp, err := chat.SendMessage(ctx, history[len(history)-1].Parts...)
	if err != nil {
		return nil, fmt.Errorf("vertex chat: %w", err)
	}

	var content strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content.WriteString(string(text))
			}
		}
	}

	out := &ChatResponse{
		Provider:  p.Name(),
		Model:     req.Model,
		Content:   content.String(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = int(u.PromptTokenCount)
		out.OutputTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
		out.CostUSD = CalculateCost(req.Model, out.InputTokens, out.OutputTokens)
	}
	return out, nil
}
