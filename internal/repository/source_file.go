package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
)

type SourceFileRepository struct {
	db *sql.DB
}

func NewSourceFileRepository(db *sql.DB) *SourceFileRepository {
	return &SourceFileRepository{db: db}
}

// Create persists the file record, assigning the ID and timestamp.
func (r *SourceFileRepository) Create(ctx context.Context, file domain.SourceFile) (domain.SourceFile, error) {
	file.ID = uuid.NewString()
	file.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO source_files (id, batch_id, seq, original_name, stored_name, status, reason, duration_seconds, snr_db, segment_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, file.ID, file.BatchID, file.Seq, file.OriginalName, file.StoredName, file.Status, file.Reason,
		file.DurationSeconds, file.SNRDB, file.SegmentCount, file.CreatedAt)
	return file, err
}

func (r *SourceFileRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.SourceFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, batch_id, seq, original_name, stored_name, status, reason, duration_seconds, snr_db, segment_count, created_at
		FROM source_files
		WHERE batch_id = $1
		ORDER BY seq ASC
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.SourceFile
	for rows.Next() {
		file, err := scanSourceFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func scanSourceFile(rows *sql.Rows) (domain.SourceFile, error) {
	var file domain.SourceFile
	var reason sql.NullString
	err := rows.Scan(&file.ID, &file.BatchID, &file.Seq, &file.OriginalName, &file.StoredName, &file.Status,
		&reason, &file.DurationSeconds, &file.SNRDB, &file.SegmentCount, &file.CreatedAt)
	if err != nil {
		return domain.SourceFile{}, err
	}
	if reason.Valid {
		value := reason.String
		file.Reason = &value
	}
	return file, nil
}
