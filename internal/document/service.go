package document

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DocumentCache holds ready records. Implementations may drop entries at any
// time.
type DocumentCache interface {
	GetDocument(ctx context.Context, id string) (*models.Document, bool)
	SetDocument(ctx context.Context, doc *models.Document)
	InvalidateDocument(ctx context.Context, id string)
}

type Service struct {
	repo     Repository
	pipeline *Pipeline
	cache    DocumentCache
	logger   *slog.Logger
}

func NewService(repo Repository, pipeline *Pipeline, cache DocumentCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pipeline: pipeline, cache: cache, logger: logger}
}

func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	doc, err := s.pipeline.Ingest(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDocument(ctx, doc)
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Document, error) {
	if s.cache != nil {
		if doc, ok := s.cache.GetDocument(ctx, id); ok {
			return doc, nil
		}
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDocument(ctx, doc)
	}
	return doc, nil
}

// GetReady returns the record only when its text and locator are populated.
func (s *Service) GetReady(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsReady() {
		return nil, ErrNotReady
	}
	return doc, nil
}

// List returns one page of records, newest first. page is 1-based.
func (s *Service) List(ctx context.Context, page, limit int) ([]models.Document, models.Pagination, error) {
	page, limit = NormalizePage(page, limit)
	docs, total, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list documents: %w", err)
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, models.NewPagination(page, limit, total), nil
}

// SaveSummary stores a generated summary on the record.
func (s *Service) SaveSummary(ctx context.Context, id, summary string) error {
	n, err := s.repo.Update(ctx, id, models.DocumentPatch{Summary: &summary})
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if s.cache != nil {
		s.cache.InvalidateDocument(ctx, id)
	}
	s.logger.InfoContext(ctx, "summary saved", "doc_id", id, "summary_chars", len(summary))
	return nil
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
