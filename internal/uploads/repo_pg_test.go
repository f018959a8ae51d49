package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateStoresMetadataAsJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	rec := UploadRecord{
		ID:           "up-1",
		UserID:       "user-1",
		Filename:     "policy.pdf",
		HeraldFileID: "file-1",
		StorageKey:   "user-1/policy.pdf",
		Metadata:     map[string]any{"extraction_status": StatusUploaded},
		CreatedAt:    time.Now().UTC(),
	}

	blob, _ := json.Marshal(rec.Metadata)
	mock.ExpectExec("INSERT INTO upload_history").
		WithArgs(rec.ID, rec.UserID, rec.Filename, rec.HeraldFileID, rec.StorageKey, blob, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByUserOrdersNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_id", "filename", "herald_file_id", "storage_key", "metadata", "created_at"}).
		AddRow("up-2", "user-1", "b.pdf", "file-2", nil, []byte(`{"extraction_status":"uploaded"}`), now).
		AddRow("up-1", "user-1", "a.pdf", nil, nil, nil, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, user_id, filename, herald_file_id, storage_key, metadata, created_at").
		WithArgs("user-1").
		WillReturnRows(rows)

	recs, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "up-2" || recs[1].ID != "up-1" {
		t.Fatalf("unexpected order: %s, %s", recs[0].ID, recs[1].ID)
	}
	if recs[0].Metadata["extraction_status"] != "uploaded" {
		t.Fatalf("metadata not decoded: %v", recs[0].Metadata)
	}
	if recs[1].HeraldFileID != "" || recs[1].Metadata != nil {
		t.Fatalf("null columns must decode to zero values: %+v", recs[1])
	}
}

func TestPGRepoUpdateMetadataUnknownIDReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE upload_history SET metadata").
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateMetadata(context.Background(), "missing", map[string]any{"extraction_status": StatusExtractionStarted})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_id", "filename", "herald_file_id", "storage_key", "metadata", "created_at"}).
		AddRow("up-1", "user-1", "a.pdf", "file-1", "user-1/a.pdf", nil, now)
	mock.ExpectQuery("DELETE FROM upload_history").
		WithArgs("up-1", "user-1").
		WillReturnRows(rows)

	rec, err := repo.Delete(context.Background(), "up-1", "user-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec.StorageKey != "user-1/a.pdf" {
		t.Fatalf("expected storage key returned, got %q", rec.StorageKey)
	}

	// Foreign owner matches no row.
	mock.ExpectQuery("DELETE FROM upload_history").
		WithArgs("up-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "filename", "herald_file_id", "storage_key", "metadata", "created_at"}))

	if _, err := repo.Delete(context.Background(), "up-1", "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
}
