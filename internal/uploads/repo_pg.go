package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. Metadata is stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new upload record.
func (r *PGRepo) Create(ctx context.Context, rec UploadRecord) error {
	const query = `
INSERT INTO upload_history (id, user_id, filename, herald_file_id, storage_key, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	metadata, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	var heraldFileID sql.NullString
	if rec.HeraldFileID != "" {
		heraldFileID = sql.NullString{String: rec.HeraldFileID, Valid: true}
	}
	var storageKey sql.NullString
	if rec.StorageKey != "" {
		storageKey = sql.NullString{String: rec.StorageKey, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Filename,
		heraldFileID,
		storageKey,
		metadata,
		rec.CreatedAt,
	)
	return err
}

// ListByUser returns the user's records, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]UploadRecord, error) {
	const query = `
SELECT id, user_id, filename, herald_file_id, storage_key, metadata, created_at
FROM upload_history
WHERE user_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UploadRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateMetadata replaces the metadata blob wholesale.
func (r *PGRepo) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	const query = `UPDATE upload_history SET metadata = $1 WHERE id = $2`

	blob, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, blob, id)
	if err != nil {
		return err
	}
	if updated, err := res.RowsAffected(); err == nil && updated == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record only when owned by userID and returns it.
func (r *PGRepo) Delete(ctx context.Context, id, userID string) (UploadRecord, error) {
	const query = `
DELETE FROM upload_history
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, filename, herald_file_id, storage_key, metadata, created_at`

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UploadRecord{}, ErrNotFound
		}
		return UploadRecord{}, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (UploadRecord, error) {
	var rec UploadRecord
	var heraldFileID sql.NullString
	var storageKey sql.NullString
	var metadata []byte
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Filename,
		&heraldFileID,
		&storageKey,
		&metadata,
		&rec.CreatedAt,
	); err != nil {
		return UploadRecord{}, err
	}
	if heraldFileID.Valid {
		rec.HeraldFileID = heraldFileID.String
	}
	if storageKey.Valid {
		rec.StorageKey = storageKey.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return UploadRecord{}, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	blob, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return blob, nil
}

var _ Repo = (*PGRepo)(nil)
