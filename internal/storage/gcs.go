package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

type GCSStorage struct {
	client *gcs.Client
	bucket string
}

func NewGCSStorage(client *gcs.Client, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (g *GCSStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return mapGCSError(err)
	}
	if err := w.Close(); err != nil {
		return mapGCSError(err)
	}
	return nil
}

func (g *GCSStorage) URL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key)
}

func mapGCSError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return accessDenied(err)
	}
	return fmt.Errorf("write object: %w", err)
}
