package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/pdfsummarizer/internal/summary"
)

type SummaryService interface {
	SummarizeDocument(ctx context.Context, id string, req summary.Request) (*summary.Result, error)
	AskDocument(ctx context.Context, id, question string, req summary.Request) (*summary.Result, error)
}

type SummaryHandler struct {
	svc    SummaryService
	logger *slog.Logger
}

func NewSummaryHandler(svc SummaryService, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{svc: svc, logger: logger}
}

type usageResponse struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Chunks       int     `json:"chunks"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Cached       bool    `json:"cached"`
}

func usageOf(res *summary.Result) usageResponse {
	return usageResponse{
		Provider:     res.Provider,
		Model:        res.Model,
		Chunks:       res.Chunks,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		CostUSD:      res.CostUSD,
		Cached:       res.Cached,
	}
}

type summarizeResponse struct {
	DocumentID string `json:"doc_id"`
	Summary    string `json:"summary"`
	usageResponse
}

func (h *SummaryHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summary.Request
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.SummarizeDocument(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{DocumentID: res.DocumentID, Summary: res.Content, usageResponse: usageOf(res)})
}

type askRequest struct {
	Question string `json:"question"`
	summary.Request
}

type askResponse struct {
	DocumentID string `json:"doc_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	usageResponse
}

func (h *SummaryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.AskDocument(r.Context(), chi.URLParam(r, "id"), req.Question, req.Request)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		DocumentID:    res.DocumentID,
		Question:      req.Question,
		Answer:        res.Content,
		usageResponse: usageOf(res),
	})
}
