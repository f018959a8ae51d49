package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Session
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Session)}
}

// Create stores a session.
func (r *MemoryRepo) Create(ctx context.Context, session Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[session.ID] = session
	return nil
}

// GetValid returns the session iff it has not expired.
func (r *MemoryRepo) GetValid(ctx context.Context, id string, now time.Time) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.data[id]
	if !ok || !now.Before(session.ExpiresAt) {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// Delete removes a session by ID.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

// DeleteExpired removes all sessions past their expiry.
func (r *MemoryRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, session := range r.data {
		if !now.Before(session.ExpiresAt) {
			delete(r.data, id)
			removed++
		}
	}
	return removed, nil
}

var _ Repo = (*MemoryRepo)(nil)
