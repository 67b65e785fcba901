package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "pdfsum:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func documentKey(id string) string {
	return "doc:" + id
}

// GetDocument returns a cached record. Only ready records are ever cached.
func (c *Cache) GetDocument(ctx context.Context, id string) (*models.Document, bool) {
	var doc models.Document
	if err := c.Get(ctx, documentKey(id), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

func (c *Cache) SetDocument(ctx context.Context, doc *models.Document) {
	if doc == nil || !doc.IsReady() {
		return
	}
	_ = c.Set(ctx, documentKey(doc.ID), doc, 0)
}

func (c *Cache) InvalidateDocument(ctx context.Context, id string) {
	_ = c.Delete(ctx, documentKey(id))
}

// ResultKey derives a stable key for an LLM result over a document.
func ResultKey(kind, docID string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("llm:%s:%s:%s", kind, docID, hex.EncodeToString(h.Sum(nil))[:16])
}
