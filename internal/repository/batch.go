package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Create(ctx context.Context) (domain.Batch, error) {
	now := time.Now().UTC()
	batch := domain.Batch{
		ID:        uuid.NewString(),
		Status:    domain.BatchStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO batches (id, status, file_count, segment_count, archive_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, batch.ID, batch.Status, batch.FileCount, batch.SegmentCount, batch.ArchivePath, batch.CreatedAt, batch.UpdatedAt)
	return batch, err
}

func (r *BatchRepository) Finalize(ctx context.Context, id string, status domain.BatchStatus, fileCount, segmentCount int, archivePath *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE batches
		SET status = $1, file_count = $2, segment_count = $3, archive_path = $4, updated_at = $5
		WHERE id = $6
	`, status, fileCount, segmentCount, archivePath, time.Now().UTC(), id)
	return err
}

func (r *BatchRepository) GetByID(ctx context.Context, id string) (domain.Batch, error) {
	var batch domain.Batch
	var archivePath sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, file_count, segment_count, archive_path, created_at, updated_at
		FROM batches
		WHERE id = $1
	`, id).Scan(&batch.ID, &batch.Status, &batch.FileCount, &batch.SegmentCount, &archivePath, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		return domain.Batch{}, err
	}
	if archivePath.Valid {
		value := archivePath.String
		batch.ArchivePath = &value
	}
	return batch, nil
}

func (r *BatchRepository) List(ctx context.Context, limit int) ([]domain.Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, file_count, segment_count, archive_path, created_at, updated_at
		FROM batches
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		var batch domain.Batch
		var archivePath sql.NullString
		if err := rows.Scan(&batch.ID, &batch.Status, &batch.FileCount, &batch.SegmentCount, &archivePath, &batch.CreatedAt, &batch.UpdatedAt); err != nil {
			return nil, err
		}
		if archivePath.Valid {
			value := archivePath.String
			batch.ArchivePath = &value
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}
