package document

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

// Repository persists document records.
//
// Insert assigns and returns the record ID when doc.ID is empty. Update
// returns the number of records it modified; zero means the ID did not match.
// List returns one page ordered by newest upload first, plus the total count.
type Repository interface {
	Insert(ctx context.Context, doc *models.Document) (string, error)
	Update(ctx context.Context, id string, patch models.DocumentPatch) (int64, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, offset, limit int) ([]models.Document, int64, error)
}

// MemoryRepository keeps records in process memory. Used for local runs and
// tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]models.Document)}
}

func (r *MemoryRepository) Insert(ctx context.Context, doc *models.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	d := *doc
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	r.docs[d.ID] = d
	return d.ID, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, patch models.DocumentPatch) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return 0, ErrMalformedID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok || patch.IsEmpty() {
		return 0, nil
	}
	patch.Apply(&d)
	r.docs[id] = d
	return 1, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrMalformedID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) List(ctx context.Context, offset, limit int) ([]models.Document, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	all := make([]models.Document, 0, len(r.docs))
	for _, d := range r.docs {
		all = append(all, d)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].UploadTime.Equal(all[j].UploadTime) {
			return all[i].ID < all[j].ID
		}
		return all[i].UploadTime.After(all[j].UploadTime)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []models.Document{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}
