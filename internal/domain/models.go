package domain

import "time"

type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

type Batch struct {
	ID           string      `db:"id"`
	Status       BatchStatus `db:"status"`
	FileCount    int         `db:"file_count"`
	SegmentCount int         `db:"segment_count"`
	ArchivePath  *string     `db:"archive_path"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type FileStatus string

const (
	// FileStatusProcessed means the file contributed segments to the dataset.
	FileStatusProcessed FileStatus = "processed"
	// FileStatusRejected means the file was skipped by a quality or format gate.
	FileStatusRejected FileStatus = "rejected"
	// FileStatusFailed means a pipeline stage errored on the file.
	FileStatusFailed FileStatus = "failed"
)

type SourceFile struct {
	ID              string     `db:"id"`
	BatchID         string     `db:"batch_id"`
	Seq             int        `db:"seq"`
	OriginalName    string     `db:"original_name"`
	StoredName      string     `db:"stored_name"`
	Status          FileStatus `db:"status"`
	Reason          *string    `db:"reason"`
	DurationSeconds float64    `db:"duration_seconds"`
	SNRDB           float64    `db:"snr_db"`
	SegmentCount    int        `db:"segment_count"`
	CreatedAt       time.Time  `db:"created_at"`
}

type Segment struct {
	ID                 string    `db:"id"`
	SourceFileID       string    `db:"source_file_id"`
	BatchID            string    `db:"batch_id"`
	Seq                int       `db:"seq"`
	Filename           string    `db:"filename"`
	Transcript         string    `db:"transcript"`
	StartSeconds       float64   `db:"start_seconds"`
	EndSeconds         float64   `db:"end_seconds"`
	DurationSeconds    float64   `db:"duration_seconds"`
	TranscriptionError *string   `db:"transcription_error"`
	CreatedAt          time.Time `db:"created_at"`
}

type ProviderKey struct {
	ID           string    `db:"id"`
	ProviderName string    `db:"provider_name"`
	EncryptedKey string    `db:"encrypted_key"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
