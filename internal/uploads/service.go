package uploads

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"policyscan-backend/internal/herald"
	"policyscan-backend/internal/shared/metrics"
	"policyscan-backend/internal/shared/storage/object"
	"policyscan-backend/internal/shared/telemetry"
)

const (
	// MaxUploadSize caps accepted PDFs at 10 MiB.
	MaxUploadSize = 10 << 20
	pdfMediaType  = "application/pdf"
)

var (
	ErrNotPDF   = errors.New("file must be a PDF")
	ErrTooLarge = errors.New("file size exceeds 10MB limit")
)

// Service coordinates the upload -> extract -> poll workflow between the
// Herald client, the upload history store, and the optional object archive.
//
// Every operation has two independent outcomes: the Herald call result,
// which is authoritative and returned to the caller, and a persistence
// result, which is advisory. Persistence failures are logged and counted
// but never change the response.
type Service struct {
	Repo   Repo
	Herald *herald.Client
	Store  object.ObjectStore // optional archive for uploaded binaries
}

// Upload validates the file, forwards it to Herald, and, for authenticated
// callers, records the upload with status "uploaded". Unauthenticated
// uploads still reach Herald; only the history record is skipped.
func (s *Service) Upload(ctx context.Context, userID, filename, contentType string, data []byte) (herald.Result, *UploadRecord, error) {
	if contentType != pdfMediaType {
		return herald.Result{}, nil, ErrNotPDF
	}
	if int64(len(data)) > MaxUploadSize {
		return herald.Result{}, nil, ErrTooLarge
	}

	res, err := s.Herald.UploadFile(ctx, filename, bytes.NewReader(data))
	if err != nil {
		return herald.Result{}, nil, err
	}
	if !res.OK() {
		return res, nil, nil
	}
	metrics.IncUpload()

	fileID := herald.FileID(res.Body)
	if fileID == "" {
		// The upload already succeeded upstream; a missing id only means the
		// record cannot be joined to later extractions.
		telemetry.Warn("upload.file_id_missing", map[string]any{
			"filename": filename,
			"user_id":  userID,
		})
	}

	if userID == "" {
		return res, nil, nil
	}

	rec := UploadRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Filename:     filename,
		HeraldFileID: fileID,
		Metadata:     withStatus(res.Body, StatusUploaded),
		CreatedAt:    time.Now().UTC(),
	}

	if s.Store != nil {
		storageKey, _, _, err := s.Store.Save(ctx, userID, filename, bytes.NewReader(data))
		if err != nil {
			s.reportPersistFailure("upload.archive_failed", rec.ID, err)
		} else {
			rec.StorageKey = storageKey
		}
	}

	if err := s.Repo.Create(ctx, rec); err != nil {
		s.reportPersistFailure("upload.record_failed", rec.ID, err)
		return res, nil, nil
	}

	return res, &rec, nil
}

// SubmitExtraction asks Herald to start extracting a previously uploaded
// file. On success the caller's matching history record, if any, moves to
// extraction_started with the raw submission response cached under
// data_extraction. Resubmitting against a completed record resets it the
// same way: the newest submission wins.
func (s *Service) SubmitExtraction(ctx context.Context, userID, fileID string) (herald.Result, error) {
	res, err := s.Herald.SubmitExtraction(ctx, fileID)
	if err != nil {
		return herald.Result{}, err
	}
	if !res.OK() {
		return res, nil
	}
	metrics.IncExtractionSubmit()

	if userID != "" {
		if rec, ok := s.findByFileID(ctx, userID, fileID); ok {
			merged := cloneMetadata(rec.Metadata)
			merged["data_extraction"] = res.Body
			merged["extraction_status"] = StatusExtractionStarted
			if err := s.Repo.UpdateMetadata(ctx, rec.ID, merged); err != nil {
				s.reportPersistFailure("extract.submit_record_failed", rec.ID, err)
			}
		}
	}

	return res, nil
}

// PollExtraction fetches the live status of an extraction job. When Herald
// reports the job available, the matching history record moves to
// extraction_complete with the final payload cached; any other status
// leaves persisted state untouched, so a pending poll can never regress a
// recorded stage. The response always reflects the live poll result.
func (s *Service) PollExtraction(ctx context.Context, userID, extractionID string) (herald.Result, error) {
	res, err := s.Herald.GetExtraction(ctx, extractionID)
	if err != nil {
		return herald.Result{}, err
	}
	if !res.OK() {
		return res, nil
	}

	if herald.Status(res.Body) != herald.StatusAvailable {
		return res, nil
	}
	metrics.IncExtractionCompleted()

	if userID != "" {
		fileID := herald.ExtractionFileID(res.Body)
		if rec, ok := s.findByFileID(ctx, userID, fileID); ok {
			merged := cloneMetadata(rec.Metadata)
			merged["data_extraction"] = herald.ExtractionPayload(res.Body)
			merged["extraction_status"] = StatusExtractionComplete
			if err := s.Repo.UpdateMetadata(ctx, rec.ID, merged); err != nil {
				s.reportPersistFailure("extract.complete_record_failed", rec.ID, err)
			}
		}
	}

	return res, nil
}

// History returns the caller's upload records, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]UploadRecord, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID)
}

// Delete removes an upload record owned by the caller, along with its
// archived binary when one exists. Foreign records report not-found.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return ErrInvalidInput
	}
	rec, err := s.Repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if s.Store != nil && rec.StorageKey != "" {
		if err := s.Store.Delete(ctx, rec.StorageKey); err != nil {
			telemetry.Warn("upload.archive_delete_failed", map[string]any{
				"upload_id":   rec.ID,
				"storage_key": rec.StorageKey,
				"error":       err.Error(),
			})
		}
	}
	return nil
}

// findByFileID scans the user's history for a record with the given Herald
// file id. There is no index on the file id; the join key only exists in
// the history rows themselves.
func (s *Service) findByFileID(ctx context.Context, userID, fileID string) (UploadRecord, bool) {
	if fileID == "" {
		return UploadRecord{}, false
	}
	recs, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		s.reportPersistFailure("extract.history_scan_failed", "", err)
		return UploadRecord{}, false
	}
	for _, rec := range recs {
		if rec.HeraldFileID == fileID {
			return rec, true
		}
	}
	return UploadRecord{}, false
}

func (s *Service) reportPersistFailure(msg, recordID string, err error) {
	metrics.IncMetadataPersistFailure()
	telemetry.Error(msg, map[string]any{
		"upload_id": recordID,
		"error":     err.Error(),
	})
}

func withStatus(body map[string]any, status string) map[string]any {
	metadata := cloneMetadata(body)
	metadata["extraction_status"] = status
	return metadata
}

func cloneMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
