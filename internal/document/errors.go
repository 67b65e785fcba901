package document

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrMalformedID = errors.New("malformed document ID")
	ErrNotReady    = errors.New("document is still being processed")
)

// Stage names a step of the ingestion pipeline.
type Stage string

const (
	StageReceived        Stage = "received"
	StageValidated       Stage = "validated"
	StageMetadataCreated Stage = "metadata_created"
	StageObjectStored    Stage = "object_stored"
	StageTextExtracted   Stage = "text_extracted"
	StageFinalized       Stage = "finalized"
)

// Failure stages reported in StageError.
const (
	FailedValidation  Stage = "validation"
	FailedPersistence Stage = "persistence"
	FailedObjectStore Stage = "object_store"
	FailedExtraction  Stage = "extraction"
)

// ValidationError rejects an upload before anything is persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StageError is a pipeline failure after validation. DocumentID is empty when
// the placeholder insert itself failed.
type StageError struct {
	Stage      Stage
	DocumentID string
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, id string, err error) *StageError {
	return &StageError{Stage: stage, DocumentID: id, Err: err}
}

// FailedStageOf returns the failure stage carried by err, if any.
func FailedStageOf(err error) (Stage, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return FailedValidation, true
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
