package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

const DefaultCollection = "document_details"

type firestoreRecord struct {
	Filename      string    `firestore:"filename"`
	UploadTime    time.Time `firestore:"upload_time"`
	ExtractedText string    `firestore:"extracted_text"`
	ObjectURI     string    `firestore:"object_uri"`
	Status        string    `firestore:"status"`
	FailedStage   string    `firestore:"failed_stage"`
	FailureReason string    `firestore:"failure_reason"`
	PageCount     int       `firestore:"page_count"`
	FileSizeBytes int64     `firestore:"file_size_bytes"`
	Summary       string    `firestore:"summary"`
}

func toRecord(d *models.Document) firestoreRecord {
	return firestoreRecord{
		Filename:      d.Filename,
		UploadTime:    d.UploadTime,
		ExtractedText: d.ExtractedText,
		ObjectURI:     d.ObjectURI,
		Status:        d.Status,
		FailedStage:   d.FailedStage,
		FailureReason: d.FailureReason,
		PageCount:     d.PageCount,
		FileSizeBytes: d.FileSizeBytes,
		Summary:       d.Summary,
	}
}

func (r firestoreRecord) document(id string) models.Document {
	return models.Document{
		ID:            id,
		Filename:      r.Filename,
		UploadTime:    r.UploadTime,
		ExtractedText: r.ExtractedText,
		ObjectURI:     r.ObjectURI,
		Status:        r.Status,
		FailedStage:   r.FailedStage,
		FailureReason: r.FailureReason,
		PageCount:     r.PageCount,
		FileSizeBytes: r.FileSizeBytes,
		Summary:       r.Summary,
	}
}

// FirestoreRepository stores one Firestore document per record. New records
// get Firestore auto-IDs; 24-hex IDs of records imported from the legacy
// store are also accepted.
type FirestoreRepository struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreRepository{client: client, collection: collection}
}

func (r *FirestoreRepository) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *FirestoreRepository) Insert(ctx context.Context, doc *models.Document) (string, error) {
	rec := toRecord(doc)
	if doc.ID != "" {
		if !validFirestoreID(doc.ID) {
			return "", ErrMalformedID
		}
		if _, err := r.col().Doc(doc.ID).Create(ctx, rec); err != nil {
			return "", fmt.Errorf("create document: %w", err)
		}
		return doc.ID, nil
	}

	ref, _, err := r.col().Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return ref.ID, nil
}

func (r *FirestoreRepository) Update(ctx context.Context, id string, patch models.DocumentPatch) (int64, error) {
	if !validFirestoreID(id) {
		return 0, ErrMalformedID
	}
	updates := firestoreUpdates(patch)
	if len(updates) == 0 {
		return 0, nil
	}

	_, err := r.col().Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}
	return 1, nil
}

func (r *FirestoreRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if !validFirestoreID(id) {
		return nil, ErrMalformedID
	}
	snap, err := r.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	var rec firestoreRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	d := rec.document(snap.Ref.ID)
	return &d, nil
}

func (r *FirestoreRepository) List(ctx context.Context, offset, limit int) ([]models.Document, int64, error) {
	agg, err := r.col().NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	total, err := aggregateCount(agg, "total")
	if err != nil {
		return nil, 0, err
	}

	iter := r.col().OrderBy("upload_time", firestore.Desc).Offset(offset).Limit(limit).Documents(ctx)
	defer iter.Stop()

	docs := []models.Document{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list documents: %w", err)
		}
		var rec firestoreRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, 0, fmt.Errorf("decode document %s: %w", snap.Ref.ID, err)
		}
		docs = append(docs, rec.document(snap.Ref.ID))
	}
	return docs, total, nil
}

func aggregateCount(res firestore.AggregationResult, alias string) (int64, error) {
	v, ok := res[alias]
	if !ok {
		return 0, fmt.Errorf("count documents: missing %q in aggregation result", alias)
	}
	pv, ok := v.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count documents: unexpected aggregation value %T", v)
	}
	return pv.GetIntegerValue(), nil
}

func firestoreUpdates(p models.DocumentPatch) []firestore.Update {
	var updates []firestore.Update
	if p.ExtractedText != nil {
		updates = append(updates, firestore.Update{Path: "extracted_text", Value: *p.ExtractedText})
	}
	if p.ObjectURI != nil {
		updates = append(updates, firestore.Update{Path: "object_uri", Value: *p.ObjectURI})
	}
	if p.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: *p.Status})
	}
	if p.FailedStage != nil {
		updates = append(updates, firestore.Update{Path: "failed_stage", Value: *p.FailedStage})
	}
	if p.FailureReason != nil {
		updates = append(updates, firestore.Update{Path: "failure_reason", Value: *p.FailureReason})
	}
	if p.PageCount != nil {
		updates = append(updates, firestore.Update{Path: "page_count", Value: *p.PageCount})
	}
	if p.Summary != nil {
		updates = append(updates, firestore.Update{Path: "summary", Value: *p.Summary})
	}
	return updates
}

const (
	autoIDLen   = 20
	legacyIDLen = 24
)

// validFirestoreID accepts Firestore auto-IDs (20 alphanumerics) and legacy
// 24-hex object IDs.
func validFirestoreID(id string) bool {
	switch len(id) {
	case autoIDLen:
		return strings.IndexFunc(id, func(c rune) bool { return !isAlnum(c) }) < 0
	case legacyIDLen:
		return strings.IndexFunc(id, func(c rune) bool { return !isHex(c) }) < 0
	}
	return false
}

func isAlnum(c rune) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isHex(c rune) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
