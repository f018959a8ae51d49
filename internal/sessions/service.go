package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is the session lifetime applied when none is configured.
const DefaultTTL = 30 * 24 * time.Hour

// Service issues and validates opaque session tokens.
type Service struct {
	Repo Repo
	TTL  time.Duration

	now func() time.Time
}

// NewService constructs a Service. A non-positive ttl falls back to DefaultTTL.
func NewService(repo Repo, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{Repo: repo, TTL: ttl, now: time.Now}
}

// Start creates a new session for the given user and returns it.
func (s *Service) Start(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, errors.New("user id required")
	}
	token, err := newToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate session token: %w", err)
	}
	now := s.now().UTC()
	session := Session{
		ID:        token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	if err := s.Repo.Create(ctx, session); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Get returns the session for a token iff it is still valid.
func (s *Service) Get(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNotFound
	}
	return s.Repo.GetValid(ctx, token, s.now().UTC())
}

// End deletes the session for a token. Ending an unknown token is not an error.
func (s *Service) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Repo.Delete(ctx, token)
}

// PurgeExpired removes expired sessions. Nothing schedules this; it is an
// operator entry point.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.Repo.DeleteExpired(ctx, s.now().UTC())
}

func newToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
