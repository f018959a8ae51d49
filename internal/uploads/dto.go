package uploads

import "time"

// HistoryEntry is the outward-facing representation of an upload record,
// annotated with its normalized lifecycle status.
type HistoryEntry struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	HeraldFileID string         `json:"heraldFileId"`
	CreatedAt    time.Time      `json:"createdAt"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Status       string         `json:"status"`
}

func toHistoryEntry(rec UploadRecord) HistoryEntry {
	return HistoryEntry{
		ID:           rec.ID,
		Filename:     rec.Filename,
		HeraldFileID: rec.HeraldFileID,
		CreatedAt:    rec.CreatedAt,
		Metadata:     rec.Metadata,
		Status:       NormalizeStatus(rec.Metadata),
	}
}
