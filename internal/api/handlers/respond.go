package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/pdfsummarizer/internal/document"
	"github.com/nikhilbhutani/pdfsummarizer/internal/summary"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeOptionalJSON decodes a JSON body into dst. An empty body leaves dst
// untouched.
func decodeOptionalJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeServiceError maps document and summary errors to responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, document.ErrMalformedID),
		errors.Is(err, summary.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, document.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, document.ErrNotReady),
		errors.Is(err, summary.ErrNoText):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, summary.ErrGeneration):
		logger.WarnContext(r.Context(), "llm call failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
