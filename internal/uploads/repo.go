package uploads

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("upload record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repo defines persistence operations for upload records.
type Repo interface {
	Create(ctx context.Context, rec UploadRecord) error
	// ListByUser returns the user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]UploadRecord, error)
	// UpdateMetadata replaces a record's metadata blob wholesale.
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	// Delete removes a record only when owned by userID and returns it.
	// Unowned and missing records are indistinguishable: both ErrNotFound.
	Delete(ctx context.Context, id, userID string) (UploadRecord, error)
}
