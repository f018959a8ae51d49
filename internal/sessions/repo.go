package sessions

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Repo defines persistence operations for sessions.
type Repo interface {
	Create(ctx context.Context, session Session) error
	// GetValid returns the session only when now is before its expiry.
	GetValid(ctx context.Context, id string, now time.Time) (Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions whose expiry is at or before now and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
