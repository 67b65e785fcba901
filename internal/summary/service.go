package summary

import (
	"context"

	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

// DocumentStore is the part of document.Service used here.
type DocumentStore interface {
	GetReady(ctx context.Context, id string) (*models.Document, error)
	SaveSummary(ctx context.Context, id, summary string) error
}

type Service struct {
	docs       DocumentStore
	summarizer *Summarizer
}

func NewService(docs DocumentStore, summarizer *Summarizer) *Service {
	return &Service{docs: docs, summarizer: summarizer}
}

// SummarizeDocument summarizes a ready document and stores the summary on
// its record. Cached results are not stored again.
func (s *Service) SummarizeDocument(ctx context.Context, id string, req Request) (*Result, error) {
	doc, err := s.docs.GetReady(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.summarizer.Summarize(ctx, doc, req)
	if err != nil {
		return nil, err
	}
	if !res.Cached || doc.Summary != res.Content {
		if err := s.docs.SaveSummary(ctx, id, res.Content); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Service) AskDocument(ctx context.Context, id, question string, req Request) (*Result, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	doc, err := s.docs.GetReady(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summarizer.Ask(ctx, doc, question, req)
}
