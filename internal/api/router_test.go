package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/pdfsummarizer/internal/api/handlers"
	"github.com/nikhilbhutani/pdfsummarizer/internal/auth"
	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
	"github.com/nikhilbhutani/pdfsummarizer/internal/document"
	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
	"github.com/nikhilbhutani/pdfsummarizer/internal/summary"
)

const testDocID = "3f1c2a9e-6d4b-4c1e-9b8a-2f7d5e6c1a00"

type fakeDocuments struct {
	uploadErr error
	uploaded  string
	docs      map[string]*models.Document
	listPage  int
	listLimit int
}

func (f *fakeDocuments) Upload(_ context.Context, filename string, data []byte) (*models.Document, error) {
	f.uploaded = filename
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &models.Document{ID: testDocID, Filename: filename, FileSizeBytes: int64(len(data))}, nil
}

func (f *fakeDocuments) Get(_ context.Context, id string) (*models.Document, error) {
	if !strings.Contains(id, "-") {
		return nil, document.ErrMalformedID
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocuments) List(_ context.Context, page, limit int) ([]models.Document, models.Pagination, error) {
	page, limit = document.NormalizePage(page, limit)
	f.listPage, f.listLimit = page, limit
	var out []models.Document
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, models.NewPagination(page, limit, int64(len(out))), nil
}

type fakeSummaries struct {
	err      error
	question string
}

func (f *fakeSummaries) SummarizeDocument(_ context.Context, id string, req summary.Request) (*summary.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &summary.Result{DocumentID: id, Content: "short summary", Provider: "openai", Model: req.Model, Chunks: 1}, nil
}

func (f *fakeSummaries) AskDocument(_ context.Context, id, question string, req summary.Request) (*summary.Result, error) {
	f.question = question
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(question) == "" {
		return nil, summary.ErrEmptyQuestion
	}
	return &summary.Result{DocumentID: id, Content: "forty-two", Provider: "openai", Model: "gpt-4o-mini"}, nil
}

type harness struct {
	handler   http.Handler
	docs      *fakeDocuments
	summaries *fakeSummaries
	issuer    *auth.Issuer
}

func newHarness(t *testing.T, checks map[string]handlers.Check) *harness {
	t.Helper()
	h := &harness{
		docs: &fakeDocuments{docs: map[string]*models.Document{
			testDocID: {ID: testDocID, Filename: "report.pdf", Status: models.DocStatusReady},
		}},
		summaries: &fakeSummaries{},
		issuer:    auth.NewIssuer("test-secret", "pdfsummarizer", time.Hour),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.ServerConfig{MaxUploadBytes: 1 << 20, CORSOrigins: []string{"*"}}
	h.handler = NewRouter(cfg, Deps{
		Documents: h.docs,
		Summaries: h.summaries,
		Issuer:    h.issuer,
		Checks:    checks,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).Setup(ctx)
	return h
}

func (h *harness) do(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func (h *harness) bearer(t *testing.T) string {
	t.Helper()
	tok, err := h.issuer.Issue("tester")
	require.NoError(t, err)
	return "Bearer " + tok.AccessToken
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRoot(t *testing.T) {
	h := newHarness(t, nil)
	rec, body := h.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PDF Summarizer API is running", body["message"])
}

func TestReadyz(t *testing.T) {
	h := newHarness(t, map[string]handlers.Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	rec, body := h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.Contains(t, checks["redis"], "connection refused")
}

func TestUpload_Success(t *testing.T) {
	h := newHarness(t, nil)
	rec, body := h.do(uploadRequest(t, "file", "report.pdf", []byte("%PDF-1.4 body")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testDocID, body["doc_id"])
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, "report.pdf", h.docs.uploaded)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "validation",
			err:     &document.ValidationError{Reason: "Only PDF files are allowed"},
			status:  http.StatusBadRequest,
			message: "Only PDF files are allowed",
		},
		{
			name:    "object store",
			err:     &document.StageError{Stage: document.FailedObjectStore, DocumentID: testDocID, Err: errors.New("access denied")},
			status:  http.StatusInternalServerError,
			message: "Upload failed at object_store: access denied",
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.docs.uploadErr = tt.err
			rec, body := h.do(uploadRequest(t, "file", "report.pdf", []byte("data")))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	h := newHarness(t, nil)
	rec, body := h.do(uploadRequest(t, "attachment", "report.pdf", []byte("data")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file required", body["error"])
}

func TestUpload_TooLarge(t *testing.T) {
	h := newHarness(t, nil)
	rec, _ := h.do(uploadRequest(t, "file", "big.pdf", bytes.Repeat([]byte("a"), 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, h.docs.uploaded)
}

func TestGetDocument(t *testing.T) {
	h := newHarness(t, nil)

	rec, body := h.do(httptest.NewRequest(http.MethodGet, "/documents/"+testDocID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "report.pdf", body["filename"])

	rec, _ = h.do(httptest.NewRequest(http.MethodGet, "/documents/not_an_id", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(httptest.NewRequest(http.MethodGet, "/documents/00000000-0000-0000-0000-000000000000", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocuments(t *testing.T) {
	h := newHarness(t, nil)

	rec, body := h.do(httptest.NewRequest(http.MethodGet, "/documents?page=1&limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["documents"], 1)
	assert.Equal(t, document.MaxPageSize, h.docs.listLimit)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["total"])

	for _, q := range []string{"page=0", "page=abc", "limit=-1"} {
		rec, _ := h.do(httptest.NewRequest(http.MethodGet, "/documents?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestListDocuments_EmptyIsArray(t *testing.T) {
	h := newHarness(t, nil)
	h.docs.docs = map[string]*models.Document{}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents", nil))
	assert.Contains(t, rec.Body.String(), `"documents":[]`)
}

func TestToken(t *testing.T) {
	h := newHarness(t, nil)
	rec, body := h.do(httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"subject":"alice"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bearer", body["token_type"])

	claims, err := h.issuer.Verify(body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestSummarize_RequiresToken(t *testing.T) {
	h := newHarness(t, nil)
	rec, body := h.do(httptest.NewRequest(http.MethodPost, "/documents/"+testDocID+"/summarize", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.NotEmpty(t, body["error"])
}

func TestSummarize(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/documents/"+testDocID+"/summarize", strings.NewReader(`{"model":"gpt-4o"}`))
	req.Header.Set("Authorization", h.bearer(t))

	rec, body := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testDocID, body["doc_id"])
	assert.Equal(t, "short summary", body["summary"])
	assert.Equal(t, "gpt-4o", body["model"])
}

func TestSummarize_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{document.ErrNotFound, http.StatusNotFound},
		{document.ErrNotReady, http.StatusConflict},
		{summary.ErrNoText, http.StatusConflict},
		{fmt.Errorf("%w: %w", summary.ErrGeneration, errors.New("rate limited")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newHarness(t, nil)
			h.summaries.err = tt.err
			req := httptest.NewRequest(http.MethodPost, "/documents/"+testDocID+"/summarize", nil)
			req.Header.Set("Authorization", h.bearer(t))
			rec, _ := h.do(req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAsk(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/documents/"+testDocID+"/ask", strings.NewReader(`{"question":"what is the answer?"}`))
	req.Header.Set("Authorization", h.bearer(t))

	rec, body := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what is the answer?", body["question"])
	assert.Equal(t, "forty-two", body["answer"])

	req = httptest.NewRequest(http.MethodPost, "/documents/"+testDocID+"/ask", strings.NewReader(`{"question":"  "}`))
	req.Header.Set("Authorization", h.bearer(t))
	rec, _ = h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
