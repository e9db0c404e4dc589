package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
)

type SegmentRepository struct {
	db *sql.DB
}

func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

func (r *SegmentRepository) Create(ctx context.Context, segment domain.Segment) (domain.Segment, error) {
	segment.ID = uuid.NewString()
	segment.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO segments (id, source_file_id, batch_id, seq, filename, transcript, start_seconds, end_seconds, duration_seconds, transcription_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, segment.ID, segment.SourceFileID, segment.BatchID, segment.Seq, segment.Filename, segment.Transcript,
		segment.StartSeconds, segment.EndSeconds, segment.DurationSeconds, segment.TranscriptionError, segment.CreatedAt)
	return segment, err
}

// ListByBatch returns the batch's segments in dataset order: source
// files in upload order, segments in emission order within each file.
func (r *SegmentRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.source_file_id, s.batch_id, s.seq, s.filename, s.transcript, s.start_seconds, s.end_seconds, s.duration_seconds, s.transcription_error, s.created_at
		FROM segments s
		JOIN source_files f ON f.id = s.source_file_id
		WHERE s.batch_id = $1
		ORDER BY f.seq ASC, s.seq ASC
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSegments(rows)
}

func (r *SegmentRepository) ListBySourceFile(ctx context.Context, sourceFileID string) ([]domain.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_file_id, batch_id, seq, filename, transcript, start_seconds, end_seconds, duration_seconds, transcription_error, created_at
		FROM segments
		WHERE source_file_id = $1
		ORDER BY seq ASC
	`, sourceFileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSegments(rows)
}

func collectSegments(rows *sql.Rows) ([]domain.Segment, error) {
	var segments []domain.Segment
	for rows.Next() {
		var segment domain.Segment
		var transcriptionError sql.NullString
		if err := rows.Scan(&segment.ID, &segment.SourceFileID, &segment.BatchID, &segment.Seq, &segment.Filename,
			&segment.Transcript, &segment.StartSeconds, &segment.EndSeconds, &segment.DurationSeconds,
			&transcriptionError, &segment.CreatedAt); err != nil {
			return nil, err
		}
		if transcriptionError.Valid {
			value := transcriptionError.String
			segment.TranscriptionError = &value
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}
