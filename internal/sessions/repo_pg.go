package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new session.
func (r *PGRepo) Create(ctx context.Context, session Session) error {
	const query = `
INSERT INTO sessions (id, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, query, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	return err
}

// GetValid returns the session iff it has not expired.
func (r *PGRepo) GetValid(ctx context.Context, id string, now time.Time) (Session, error) {
	const query = `
SELECT id, user_id, created_at, expires_at
FROM sessions
WHERE id = $1 AND expires_at > $2
LIMIT 1`
	var session Session
	err := r.DB.QueryRowContext(ctx, query, id, now).Scan(
		&session.ID,
		&session.UserID,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return session, nil
}

// Delete removes a session by ID.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}

// DeleteExpired removes all sessions past their expiry.
func (r *PGRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= $1`
	res, err := r.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()
	return int(removed), nil
}

var _ Repo = (*PGRepo)(nil)
