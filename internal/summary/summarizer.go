package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/pdfsummarizer/internal/cache"
	"github.com/nikhilbhutani/pdfsummarizer/internal/llm"
	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
	"github.com/nikhilbhutani/pdfsummarizer/pkg/chunker"
	"github.com/nikhilbhutani/pdfsummarizer/pkg/tokenizer"
)

var (
	// ErrGeneration wraps every failure of the language model call.
	ErrGeneration    = errors.New("LLM generation failed")
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrNoText        = errors.New("document has no extracted text")
)

const (
	kindSummary = "summary"
	kindAnswer  = "answer"

	summarySystemPrompt = "You summarize documents. Write a concise summary that keeps the key facts, figures and conclusions of the text. Do not add information that is not in the text."
	mapSystemPrompt     = "You summarize one section of a longer document. Keep every fact that could matter for an overall summary."
	reduceSystemPrompt  = "You combine section summaries of one document into a single concise summary. Remove repetition and keep the original order of topics."
	askSystemPrompt     = "You answer questions about a document using only its text. If the text does not contain the answer, say that the document does not say."
	notesSystemPrompt   = "You extract the passages of one document section that help answer a question. Reply with NONE when the section is irrelevant."

	// NotInDocumentAnswer is returned when no section of a long document is
	// relevant to the question.
	NotInDocumentAnswer = "The document does not say."
)

// ResultCache stores generated results. cache.Cache satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Options struct {
	// ChunkTokens is the largest text, in tokens, sent in one call.
	ChunkTokens     int
	MaxOutputTokens int
	// Concurrency bounds the parallel section calls of one request.
	Concurrency int
}

// Request selects the provider and model for one call. Empty fields use the
// gateway defaults.
type Request struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

type Result struct {
	DocumentID   string  `json:"doc_id"`
	Content      string  `json:"content"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Chunks       int     `json:"chunks"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Cached       bool    `json:"cached"`
}

type Summarizer struct {
	gateway llm.Gateway
	cache   ResultCache
	opts    Options
	logger  *slog.Logger
}

func NewSummarizer(gateway llm.Gateway, resultCache ResultCache, opts Options, logger *slog.Logger) *Summarizer {
	if opts.ChunkTokens <= 0 {
		opts.ChunkTokens = 6000
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 1024
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{gateway: gateway, cache: resultCache, opts: opts, logger: logger}
}

// Summarize produces a summary of the document text. Texts above the chunk
// budget are summarized per section first and the section summaries combined.
func (s *Summarizer) Summarize(ctx context.Context, doc *models.Document, req Request) (*Result, error) {
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return nil, ErrNoText
	}
	key := cache.ResultKey(kindSummary, doc.ID, req.Provider, req.Model, doc.ExtractedText)
	if res, ok := s.cached(ctx, key); ok {
		return res, nil
	}

	start := time.Now()
	acc := &usage{}
	chunks := s.split(doc.ExtractedText)

	var content string
	var err error
	if len(chunks) == 1 {
		content, err = s.call(ctx, req, acc, summarySystemPrompt, chunks[0].Content)
	} else {
		var partials []string
		partials, err = s.mapChunks(ctx, chunks, func(ctx context.Context, c chunker.TextChunk) (string, error) {
			prompt := fmt.Sprintf("Section %d of %d:\n\n%s", c.Index+1, len(chunks), c.Content)
			return s.call(ctx, req, acc, mapSystemPrompt, prompt)
		})
		if err == nil {
			content, err = s.call(ctx, req, acc, reduceSystemPrompt, joinSections(partials))
		}
	}
	if err != nil {
		return nil, err
	}

	res := acc.result(doc.ID, content, len(chunks))
	s.logger.InfoContext(ctx, "document summarized",
		"doc_id", doc.ID,
		"chunks", res.Chunks,
		"provider", res.Provider,
		"total_tokens", res.InputTokens+res.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	s.store(ctx, key, res)
	return res, nil
}

// Ask answers a question about the document. Long texts are reduced to the
// passages relevant to the question before answering.
func (s *Summarizer) Ask(ctx context.Context, doc *models.Document, question string, req Request) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return nil, ErrNoText
	}
	key := cache.ResultKey(kindAnswer, doc.ID, req.Provider, req.Model, question, doc.ExtractedText)
	if res, ok := s.cached(ctx, key); ok {
		return res, nil
	}

	start := time.Now()
	acc := &usage{}
	chunks := s.split(doc.ExtractedText)

	material := chunks[0].Content
	if len(chunks) > 1 {
		notes, err := s.mapChunks(ctx, chunks, func(ctx context.Context, c chunker.TextChunk) (string, error) {
			prompt := fmt.Sprintf("Question: %s\n\nSection %d of %d:\n\n%s", question, c.Index+1, len(chunks), c.Content)
			return s.call(ctx, req, acc, notesSystemPrompt, prompt)
		})
		if err != nil {
			return nil, err
		}
		relevant := notes[:0]
		for _, n := range notes {
			if !strings.EqualFold(strings.TrimSpace(n), "NONE") {
				relevant = append(relevant, n)
			}
		}
		material = joinSections(relevant)
	}

	answer := NotInDocumentAnswer
	if strings.TrimSpace(material) != "" {
		var err error
		answer, err = s.call(ctx, req, acc, askSystemPrompt, fmt.Sprintf("Document:\n\n%s\n\nQuestion: %s", material, question))
		if err != nil {
			return nil, err
		}
	}

	res := acc.result(doc.ID, answer, len(chunks))
	s.logger.InfoContext(ctx, "question answered",
		"doc_id", doc.ID,
		"chunks", res.Chunks,
		"provider", res.Provider,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	s.store(ctx, key, res)
	return res, nil
}

func (s *Summarizer) split(text string) []chunker.TextChunk {
	budget := tokenizer.CharsForTokens(s.opts.ChunkTokens)
	if tokenizer.CountTokens(text) <= s.opts.ChunkTokens {
		return []chunker.TextChunk{{Content: strings.TrimSpace(text), End: len(text)}}
	}
	return chunker.Chunk(text, chunker.ChunkOptions{ChunkSize: budget, ChunkOverlap: budget / 20})
}

// mapChunks runs fn over every chunk with bounded parallelism and returns the
// outputs in chunk order. The first error cancels the remaining calls.
func (s *Summarizer) mapChunks(ctx context.Context, chunks []chunker.TextChunk, fn func(context.Context, chunker.TextChunk) (string, error)) ([]string, error) {
	out := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			text, err := fn(gctx, c)
			if err != nil {
				return err
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Summarizer) call(ctx context.Context, req Request, acc *usage, system, prompt string) (string, error) {
	resp, err := s.gateway.Chat(ctx, llm.ChatRequest{
		Provider:  req.Provider,
		Model:     req.Model,
		Messages:  []llm.Message{llm.System(system), llm.User(prompt)},
		MaxTokens: s.opts.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	acc.add(resp)
	return strings.TrimSpace(resp.Content), nil
}

func (s *Summarizer) cached(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	var res Result
	if err := s.cache.Get(ctx, key, &res); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WarnContext(ctx, "result cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	res.Cached = true
	return &res, true
}

func (s *Summarizer) store(ctx context.Context, key string, res *Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, res, 0); err != nil {
		s.logger.WarnContext(ctx, "result cache write failed", "key", key, "error", err)
	}
}

func joinSections(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, p)
	}
	return b.String()
}

type usage struct {
	mu       sync.Mutex
	provider string
	model    string
	input    int
	output   int
	cost     float64
}

func (u *usage) add(resp *llm.ChatResponse) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.provider = resp.Provider
	u.model = resp.Model
	u.input += resp.InputTokens
	u.output += resp.OutputTokens
	u.cost += resp.CostUSD
}

func (u *usage) result(docID, content string, chunks int) *Result {
	u.mu.Lock()
	defer u.mu.Unlock()
	return &Result{
		DocumentID:   docID,
		Content:      content,
		Provider:     u.provider,
		Model:        u.model,
		Chunks:       chunks,
		InputTokens:  u.input,
		OutputTokens: u.output,
		CostUSD:      u.cost,
	}
}
