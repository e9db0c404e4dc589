package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/config"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/storage"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestBatchLifecycle(t *testing.T) {
	db := testDB(t)
	repo := NewBatchRepository(db)
	ctx := context.Background()

	batch, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if batch.Status != domain.BatchStatusProcessing {
		t.Errorf("new batch status = %q, want processing", batch.Status)
	}

	archive := "/results/" + batch.ID + "/tts_dataset.zip"
	if err := repo.Finalize(ctx, batch.ID, domain.BatchStatusCompleted, 3, 7, &archive); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	got, err := repo.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.BatchStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.FileCount != 3 || got.SegmentCount != 7 {
		t.Errorf("counts = %d/%d, want 3/7", got.FileCount, got.SegmentCount)
	}
	if got.ArchivePath == nil || *got.ArchivePath != archive {
		t.Errorf("archive path = %v, want %q", got.ArchivePath, archive)
	}

	if _, err := repo.GetByID(ctx, "missing"); err != sql.ErrNoRows {
		t.Errorf("GetByID(missing) = %v, want sql.ErrNoRows", err)
	}
}

func TestBatchListHonorsLimit(t *testing.T) {
	db := testDB(t)
	repo := NewBatchRepository(db)
	ctx := context.Background()

	known := make(map[string]bool)
	for i := 0; i < 3; i++ {
		b, err := repo.Create(ctx)
		if err != nil {
			t.Fatal(err)
		}
		known[b.ID] = true
	}

	batches, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	for _, b := range batches {
		if !known[b.ID] {
			t.Errorf("listed unknown batch %s", b.ID)
		}
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List with default limit failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("default limit returned %d batches, want 3", len(all))
	}
}

func TestSourceFilesOrderedBySeq(t *testing.T) {
	db := testDB(t)
	batches := NewBatchRepository(db)
	files := NewSourceFileRepository(db)
	ctx := context.Background()

	batch, err := batches.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	reason := "Low SNR: too quiet"
	// Insert out of order on purpose.
	for _, f := range []domain.SourceFile{
		{BatchID: batch.ID, Seq: 1, OriginalName: "b.opus", StoredName: "b.opus", Status: domain.FileStatusRejected, Reason: &reason},
		{BatchID: batch.ID, Seq: 0, OriginalName: "a.opus", StoredName: "a.opus", Status: domain.FileStatusProcessed, DurationSeconds: 2.5, SNRDB: 31.2, SegmentCount: 2},
	} {
		if _, err := files.Create(ctx, f); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	listed, err := files.ListByBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ListByBatch failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d files, want 2", len(listed))
	}
	if listed[0].OriginalName != "a.opus" || listed[1].OriginalName != "b.opus" {
		t.Errorf("order = %s, %s; want a.opus, b.opus", listed[0].OriginalName, listed[1].OriginalName)
	}
	if listed[0].Reason != nil {
		t.Errorf("a.opus reason = %v, want nil", *listed[0].Reason)
	}
	if listed[1].Reason == nil || *listed[1].Reason != reason {
		t.Errorf("b.opus reason = %v, want %q", listed[1].Reason, reason)
	}
}

func TestSegmentsOrderedByFileThenSeq(t *testing.T) {
	db := testDB(t)
	batches := NewBatchRepository(db)
	files := NewSourceFileRepository(db)
	segments := NewSegmentRepository(db)
	ctx := context.Background()

	batch, err := batches.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := files.Create(ctx, domain.SourceFile{BatchID: batch.ID, Seq: 1, OriginalName: "b.opus", StoredName: "b.opus", Status: domain.FileStatusProcessed})
	if err != nil {
		t.Fatal(err)
	}
	first, err := files.Create(ctx, domain.SourceFile{BatchID: batch.ID, Seq: 0, OriginalName: "a.opus", StoredName: "a.opus", Status: domain.FileStatusProcessed})
	if err != nil {
		t.Fatal(err)
	}

	sttErr := "stt down"
	for _, s := range []domain.Segment{
		{SourceFileID: second.ID, BatchID: batch.ID, Seq: 1, Filename: "b_segment_0001.wav", Transcript: "drei"},
		{SourceFileID: first.ID, BatchID: batch.ID, Seq: 2, Filename: "a_segment_0002.wav", Transcript: "zwei"},
		{SourceFileID: first.ID, BatchID: batch.ID, Seq: 1, Filename: "a_segment_0001.wav", Transcript: "", TranscriptionError: &sttErr},
	} {
		if _, err := segments.Create(ctx, s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	listed, err := segments.ListByBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ListByBatch failed: %v", err)
	}
	want := []string{"a_segment_0001.wav", "a_segment_0002.wav", "b_segment_0001.wav"}
	if len(listed) != len(want) {
		t.Fatalf("got %d segments, want %d", len(listed), len(want))
	}
	for i, name := range want {
		if listed[i].Filename != name {
			t.Errorf("segment %d = %s, want %s", i, listed[i].Filename, name)
		}
	}
	if listed[0].TranscriptionError == nil || *listed[0].TranscriptionError != sttErr {
		t.Errorf("first segment error = %v, want %q", listed[0].TranscriptionError, sttErr)
	}

	byFile, err := segments.ListBySourceFile(ctx, first.ID)
	if err != nil {
		t.Fatalf("ListBySourceFile failed: %v", err)
	}
	if len(byFile) != 2 || byFile[0].Seq != 1 || byFile[1].Seq != 2 {
		t.Errorf("ListBySourceFile order wrong: %+v", byFile)
	}
}

func TestProviderKeyUpsert(t *testing.T) {
	db := testDB(t)
	repo := NewProviderKeyRepository(db)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, "openai", "cipher-1")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	updated, err := repo.Upsert(ctx, "openai", "cipher-2")
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("upsert created a new row: %s != %s", updated.ID, created.ID)
	}

	got, err := repo.GetByProvider(ctx, "openai")
	if err != nil {
		t.Fatalf("GetByProvider failed: %v", err)
	}
	if got.EncryptedKey != "cipher-2" {
		t.Errorf("encrypted key = %q, want cipher-2", got.EncryptedKey)
	}

	keys, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("got %d keys, want 1", len(keys))
	}

	if err := repo.Delete(ctx, "openai"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByProvider(ctx, "openai"); err != sql.ErrNoRows {
		t.Errorf("GetByProvider after delete = %v, want sql.ErrNoRows", err)
	}
}
