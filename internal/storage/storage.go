package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrAccessDenied marks authentication and permission failures of a backend.
var ErrAccessDenied = errors.New("object store access denied")

const (
	DefaultKeyPrefix = "documents/"
	DefaultKeySuffix = ".pdf"
	pdfContentType   = "application/pdf"
)

// Storage is an object store backend.
type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
}

// Adapter stores document bytes under a key derived from the document ID.
type Adapter struct {
	backend Storage
	prefix  string
	suffix  string
}

func NewAdapter(backend Storage, prefix, suffix string) *Adapter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if suffix == "" {
		suffix = DefaultKeySuffix
	}
	return &Adapter{backend: backend, prefix: prefix, suffix: suffix}
}

func (a *Adapter) Key(id string) string {
	return a.prefix + id + a.suffix
}

// UploadDocument uploads data and returns its durable locator.
func (a *Adapter) UploadDocument(ctx context.Context, id string, data []byte) (string, error) {
	key := a.Key(id)
	if err := a.backend.Upload(ctx, key, data, pdfContentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return a.backend.URL(key), nil
}

// accessDenied wraps err so that errors.Is(err, ErrAccessDenied) holds.
func accessDenied(err error) error {
	return fmt.Errorf("%w: %w", ErrAccessDenied, err)
}
