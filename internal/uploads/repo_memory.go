package uploads

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string][]UploadRecord
	owner  map[string]string // record id -> user id
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byUser: make(map[string][]UploadRecord),
		owner:  make(map[string]string),
	}
}

// Create stores a new upload record.
func (r *MemoryRepo) Create(ctx context.Context, rec UploadRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[rec.UserID] = append(r.byUser[rec.UserID], rec)
	r.owner[rec.ID] = rec.UserID
	return nil
}

// ListByUser returns the user's records, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]UploadRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]UploadRecord, len(r.byUser[userID]))
	copy(recs, r.byUser[userID])
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// UpdateMetadata replaces the metadata blob wholesale.
func (r *MemoryRepo) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[id]
	if !ok {
		return ErrNotFound
	}
	recs := r.byUser[userID]
	for i := range recs {
		if recs[i].ID == id {
			recs[i].Metadata = metadata
			r.byUser[userID] = recs
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes a record only when owned by userID and returns it.
func (r *MemoryRepo) Delete(ctx context.Context, id, userID string) (UploadRecord, error) {
	if err := ctx.Err(); err != nil {
		return UploadRecord{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owner[id] != userID {
		return UploadRecord{}, ErrNotFound
	}
	recs := r.byUser[userID]
	for i := range recs {
		if recs[i].ID == id {
			rec := recs[i]
			r.byUser[userID] = append(recs[:i], recs[i+1:]...)
			delete(r.owner, id)
			return rec, nil
		}
	}
	return UploadRecord{}, ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
