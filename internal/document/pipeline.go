package document

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

var errNoModification = errors.New("update returned no modification")

// ObjectStore uploads the raw bytes of a document and returns its locator.
type ObjectStore interface {
	UploadDocument(ctx context.Context, id string, data []byte) (string, error)
}

// FinalizeHook runs after a record reached its ready state.
type FinalizeHook func(ctx context.Context, doc *models.Document)

// Pipeline runs one upload through validation, placeholder insert, object
// upload, text extraction and the final update. Stages run strictly in order.
type Pipeline struct {
	repo      Repository
	store     ObjectStore
	validator *Validator
	extractor TextExtractor
	logger    *slog.Logger
	hook      FinalizeHook
	now       func() time.Time
}

func NewPipeline(repo Repository, store ObjectStore, validator *Validator, extractor TextExtractor, logger *slog.Logger) *Pipeline {
	if validator == nil {
		validator = NewValidator(DefaultMinFileSize)
	}
	if extractor == nil {
		extractor = NewTextExtractor()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		repo:      repo,
		store:     store,
		validator: validator,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

// OnFinalized registers a hook called with the read-back record of every
// successful upload.
func (p *Pipeline) OnFinalized(hook FinalizeHook) {
	p.hook = hook
}

// Ingest runs the pipeline. Cancellation of ctx does not stop it: once started,
// an upload runs to completion or failure.
//
// Validation failures return *ValidationError and create nothing. Later
// failures return *StageError; the record keeps every field it already had and
// is marked failed.
func (p *Pipeline) Ingest(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	log := p.logger.With("filename", filename, "size_bytes", len(data))
	log.InfoContext(ctx, "upload received", "stage", StageReceived)

	res := p.validator.Validate(data, filename)
	if !res.OK {
		log.WarnContext(ctx, "upload rejected", "stage", FailedValidation, "reason", res.Reason)
		return nil, &ValidationError{Reason: res.Reason}
	}
	log.InfoContext(ctx, "upload validated", "stage", StageValidated)

	placeholder := &models.Document{
		Filename:      filename,
		UploadTime:    p.now().UTC(),
		Status:        models.DocStatusPending,
		FileSizeBytes: int64(len(data)),
	}
	var id string
	err := p.instrument(ctx, log, StageMetadataCreated, func() error {
		var err error
		id, err = p.repo.Insert(ctx, placeholder)
		return err
	})
	if err != nil {
		return nil, stageErr(FailedPersistence, "", err)
	}
	log = log.With("doc_id", id)

	var uri string
	err = p.instrument(ctx, log, StageObjectStored, func() error {
		var err error
		uri, err = p.store.UploadDocument(ctx, id, data)
		return err
	})
	if err != nil {
		return nil, p.fail(ctx, log, id, FailedObjectStore, err)
	}

	var text string
	var pages int
	err = p.instrument(ctx, log, StageTextExtracted, func() error {
		out, err := p.extractor.Extract(ctx, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return err
		}
		text, pages = out.Content, out.Pages
		return nil
	})
	if err != nil {
		return nil, p.fail(ctx, log, id, FailedExtraction, err)
	}

	ready := models.DocStatusReady
	patch := models.DocumentPatch{
		ObjectURI:     &uri,
		ExtractedText: &text,
		Status:        &ready,
		PageCount:     &pages,
	}
	err = p.instrument(ctx, log, StageFinalized, func() error {
		n, err := p.repo.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		if n == 0 {
			return errNoModification
		}
		return nil
	})
	if err != nil {
		return nil, p.fail(ctx, log, id, FailedPersistence, err)
	}

	doc, err := p.repo.FindByID(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "read after write failed", "error", err)
		return nil, stageErr(FailedPersistence, id, err)
	}

	log.InfoContext(ctx, "upload finalized",
		"pages", pages,
		"text_chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if p.hook != nil {
		p.hook(ctx, doc)
	}
	return doc, nil
}

func (p *Pipeline) instrument(ctx context.Context, log *slog.Logger, stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.ErrorContext(ctx, "pipeline stage failed", "stage", stage, "elapsed_ms", elapsed, "error", err)
		return err
	}
	log.InfoContext(ctx, "pipeline stage complete", "stage", stage, "elapsed_ms", elapsed)
	return nil
}

// fail marks the record as failed and returns the stage error. The marking is
// best effort and only ever adds fields.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, id string, stage Stage, cause error) error {
	status := models.DocStatusFailed
	failedStage := string(stage)
	reason := cause.Error()
	patch := models.DocumentPatch{
		Status:        &status,
		FailedStage:   &failedStage,
		FailureReason: &reason,
	}
	if _, err := p.repo.Update(ctx, id, patch); err != nil {
		log.WarnContext(ctx, "could not mark document failed", "stage", stage, "error", err)
	}
	return stageErr(stage, id, cause)
}
