package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/pdfsummarizer/internal/auth"
)

type TokenHandler struct {
	issuer *auth.Issuer
	logger *slog.Logger
}

func NewTokenHandler(issuer *auth.Issuer, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{issuer: issuer, logger: logger}
}

type tokenRequest struct {
	Subject string `json:"subject"`
}

// Issue returns a bearer token for the LLM routes.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tok, err := h.issuer.Issue(req.Subject)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}
