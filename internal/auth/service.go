package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"policyscan-backend/internal/sessions"
	"policyscan-backend/internal/users"
)

// bcryptCost matches the account-creation cost used by existing deployments,
// so old and new password hashes stay interchangeable.
const bcryptCost = 10

var (
	ErrInvalidInput = errors.New("email and password required")
	// ErrInvalidCredentials covers both unknown email and wrong password, so
	// the response never reveals whether an account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service implements signup/signin/signout on top of the user and session stores.
type Service struct {
	Users    users.Repo
	Sessions *sessions.Service
}

// NewService constructs a Service.
func NewService(userRepo users.Repo, sessionSvc *sessions.Service) *Service {
	return &Service{Users: userRepo, Sessions: sessionSvc}
}

// Signup registers a new account. Emails are lower-cased before storage and
// lookup. A duplicate email returns users.ErrEmailTaken.
func (s *Service) Signup(ctx context.Context, email, password string) error {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := users.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	return s.Users.Create(ctx, user)
}

// Signin verifies credentials and starts a session.
func (s *Service) Signin(ctx context.Context, email, password string) (sessions.Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return sessions.Session{}, ErrInvalidInput
	}

	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return sessions.Session{}, ErrInvalidCredentials
		}
		return sessions.Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return sessions.Session{}, ErrInvalidCredentials
	}

	return s.Sessions.Start(ctx, user.ID)
}

// Signout ends the session for a token. Unknown tokens are ignored.
func (s *Service) Signout(ctx context.Context, token string) error {
	return s.Sessions.End(ctx, token)
}

// Identify resolves a session token to its user. ok is false for missing,
// expired, or dangling sessions.
func (s *Service) Identify(ctx context.Context, token string) (users.User, bool) {
	session, err := s.Sessions.Get(ctx, token)
	if err != nil {
		return users.User{}, false
	}
	user, err := s.Users.GetByID(ctx, session.UserID)
	if err != nil {
		return users.User{}, false
	}
	return user, true
}

// Resolve implements the session middleware's resolver contract.
func (s *Service) Resolve(ctx context.Context, token string) (string, string, bool) {
	user, ok := s.Identify(ctx, token)
	if !ok {
		return "", "", false
	}
	return user.ID, user.Email, true
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
