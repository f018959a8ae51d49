package uploads

import "time"

// UploadRecord tracks one uploaded document's lifecycle and caches the
// extraction payload last seen from the Herald API. Metadata is an opaque
// JSON blob replaced wholesale on update, never merged field-by-field at the
// storage layer.
type UploadRecord struct {
	ID           string
	UserID       string
	Filename     string
	HeraldFileID string
	StorageKey   string
	Metadata     map[string]any
	CreatedAt    time.Time
}
