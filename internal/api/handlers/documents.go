package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/pdfsummarizer/internal/document"
	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

const (
	uploadSuccessMessage = "PDF file uploaded and text extracted successfully"
	multipartMemory      = 32 << 20
)

type DocumentService interface {
	Upload(ctx context.Context, filename string, data []byte) (*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, page, limit int) ([]models.Document, models.Pagination, error)
}

type DocumentHandler struct {
	svc       DocumentService
	maxUpload int64
	logger    *slog.Logger
}

func NewDocumentHandler(svc DocumentService, maxUpload int64, logger *slog.Logger) *DocumentHandler {
	if maxUpload <= 0 {
		maxUpload = 50 << 20
	}
	return &DocumentHandler{svc: svc, maxUpload: maxUpload, logger: logger}
}

type uploadResponse struct {
	DocumentID string `json:"doc_id"`
	Message    string `json:"message"`
}

// Upload runs the ingestion pipeline on the multipart "file" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	doc, err := h.svc.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{DocumentID: doc.ID, Message: uploadSuccessMessage})
}

func (h *DocumentHandler) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *document.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Reason)
		return
	}
	var se *document.StageError
	if errors.As(err, &se) {
		h.logger.ErrorContext(r.Context(), "upload failed",
			"stage", se.Stage,
			"doc_id", se.DocumentID,
			"error", se.Err,
		)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Upload failed at %s: %v", se.Stage, se.Err))
		return
	}
	writeServiceError(w, r, h.logger, err)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type listResponse struct {
	Documents  []models.Document `json:"documents"`
	Pagination models.Pagination `json:"pagination"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", document.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, pagination, err := h.svc.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, listResponse{Documents: docs, Pagination: pagination})
}

// queryInt reads a positive integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}
