package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/audio"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/config"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/dataset"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/media"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/metrics"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/repository"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/transcribe"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/upload"
)

// Normalizer converts an arbitrary audio file into mono 16-bit PCM WAV.
type Normalizer interface {
	Normalize(ctx context.Context, src, dst string) error
}

// Transcriber turns a WAV file into raw text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Upload is one incoming file, decoupled from multipart plumbing so the
// pipeline can be driven from tests and the JSON API alike.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type DatasetDeps struct {
	Pipeline       config.Pipeline
	Staging        *upload.Manager
	Normalizer     Normalizer
	Transcriber    Transcriber
	Batches        *repository.BatchRepository
	Files          *repository.SourceFileRepository
	Segments       *repository.SegmentRepository
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	ResultsDir     string
	Workers        int
	MaxUploadBytes int64
}

// DatasetService runs the upload-to-archive pipeline: normalize,
// quality-gate, segment, transcribe, package. Files of one batch are
// processed concurrently; everything downstream of the worker pool is
// reassembled in upload order.
type DatasetService struct {
	pipeline    config.Pipeline
	staging     *upload.Manager
	normalizer  Normalizer
	transcriber Transcriber
	batches     *repository.BatchRepository
	files       *repository.SourceFileRepository
	segments    *repository.SegmentRepository
	metrics     *metrics.Metrics
	logger      *slog.Logger
	resultsDir  string
	workers     int
	maxBytes    int64
}

func NewDatasetService(deps DatasetDeps) *DatasetService {
	if deps.Workers <= 0 {
		deps.Workers = 4
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return &DatasetService{
		pipeline:    deps.Pipeline,
		staging:     deps.Staging,
		normalizer:  deps.Normalizer,
		transcriber: deps.Transcriber,
		batches:     deps.Batches,
		files:       deps.Files,
		segments:    deps.Segments,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		resultsDir:  deps.ResultsDir,
		workers:     deps.Workers,
		maxBytes:    deps.MaxUploadBytes,
	}
}

type FileResult struct {
	File     domain.SourceFile
	Segments []domain.Segment
}

type BatchResult struct {
	Batch       domain.Batch
	Files       []FileResult
	ArchivePath string
	ArchiveName string
}

type stagedFile struct {
	originalName string
	storedName   string
	rawPath      string
	earlyStatus  domain.FileStatus
	earlyReason  string
}

type fileOutcome struct {
	file     domain.SourceFile
	segments []domain.Segment
	entries  []dataset.Entry
	wavPaths []string
}

// ProcessBatch runs the full pipeline over one request's uploads and
// returns the per-file results in upload order. A bad file never aborts
// the batch; it just ends in a rejected or failed state.
func (s *DatasetService) ProcessBatch(ctx context.Context, uploads []Upload) (BatchResult, error) {
	start := time.Now()

	batch, err := s.batches.Create(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("create batch: %w", err)
	}
	s.metrics.BatchesTotal.Inc()

	area, err := s.staging.Create(batch.ID)
	if err != nil {
		s.finalize(ctx, batch.ID, domain.BatchStatusFailed, 0, 0, nil)
		return BatchResult{}, fmt.Errorf("stage batch: %w", err)
	}
	defer func() {
		if err := s.staging.Discard(batch.ID); err != nil {
			s.logger.Warn("discard staging area", slog.String("batch_id", batch.ID), slog.Any("error", err))
		}
	}()

	pack, err := dataset.NewPackager(filepath.Join(s.resultsDir, batch.ID), s.logger)
	if err != nil {
		s.finalize(ctx, batch.ID, domain.BatchStatusFailed, 0, 0, nil)
		return BatchResult{}, fmt.Errorf("create dataset dir: %w", err)
	}

	staged := s.stageUploads(area, uploads)

	outcomes := make([]fileOutcome, len(staged))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range staged {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = s.processFile(ctx, area, pack, staged[i])
		}(i)
	}
	wg.Wait()

	status := domain.BatchStatusCompleted
	totalSegments := 0
	for i := range outcomes {
		o := &outcomes[i]
		if len(o.entries) == 0 {
			continue
		}
		if err := pack.Append(o.entries); err != nil {
			s.logger.Error("record metadata", slog.String("file", o.file.OriginalName), slog.Any("error", err))
			*o = s.fail(*o, fmt.Sprintf("record metadata: %v", err))
			continue
		}
		totalSegments += len(o.segments)
	}

	result := BatchResult{Batch: batch}
	var archivePath *string
	if totalSegments > 0 {
		path, err := pack.BuildArchive()
		if err != nil {
			s.logger.Error("build archive", slog.String("batch_id", batch.ID), slog.Any("error", err))
			status = domain.BatchStatusFailed
		} else {
			archivePath = &path
			result.ArchivePath = path
			result.ArchiveName = dataset.ArchiveName
		}
	}

	for i := range outcomes {
		o := &outcomes[i]
		o.file.BatchID = batch.ID
		o.file.Seq = i
		created, err := s.files.Create(ctx, o.file)
		if err != nil {
			s.logger.Error("persist file record", slog.String("file", o.file.OriginalName), slog.Any("error", err))
			status = domain.BatchStatusFailed
			result.Files = append(result.Files, FileResult{File: o.file, Segments: o.segments})
			continue
		}

		fr := FileResult{File: created}
		for j := range o.segments {
			seg := o.segments[j]
			seg.SourceFileID = created.ID
			seg.BatchID = batch.ID
			seg.Seq = j + 1
			stored, err := s.segments.Create(ctx, seg)
			if err != nil {
				s.logger.Error("persist segment record", slog.String("segment", seg.Filename), slog.Any("error", err))
				status = domain.BatchStatusFailed
				stored = seg
			}
			fr.Segments = append(fr.Segments, stored)
		}
		result.Files = append(result.Files, fr)
	}

	s.finalize(ctx, batch.ID, status, len(outcomes), totalSegments, archivePath)
	result.Batch.Status = status
	result.Batch.FileCount = len(outcomes)
	result.Batch.SegmentCount = totalSegments
	result.Batch.ArchivePath = archivePath

	s.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("batch processed",
		slog.String("batch_id", batch.ID),
		slog.Int("files", len(outcomes)),
		slog.Int("segments", totalSegments),
		slog.String("status", string(status)))
	return result, nil
}

// stageUploads copies each upload into the staging area, pre-rejecting
// anything with an unsupported extension or an oversized body.
func (s *DatasetService) stageUploads(area upload.Area, uploads []Upload) []stagedFile {
	staged := make([]stagedFile, 0, len(uploads))
	for _, up := range uploads {
		sf := stagedFile{originalName: up.Name}
		switch {
		case !media.IsSupported(up.Name):
			sf.earlyStatus = domain.FileStatusRejected
			sf.earlyReason = fmt.Sprintf("unsupported format %q", strings.ToLower(filepath.Ext(up.Name)))
		case s.maxBytes > 0 && up.Size > s.maxBytes:
			sf.earlyStatus = domain.FileStatusRejected
			sf.earlyReason = fmt.Sprintf("file exceeds the %d MB upload limit", s.maxBytes>>20)
		default:
			name := s.staging.StoredName(area, up.Name)
			src, err := up.Open()
			if err != nil {
				sf.earlyStatus = domain.FileStatusFailed
				sf.earlyReason = fmt.Sprintf("read upload: %v", err)
				break
			}
			path, err := s.staging.Save(area, name, src)
			src.Close()
			if err != nil {
				sf.earlyStatus = domain.FileStatusFailed
				sf.earlyReason = fmt.Sprintf("store upload: %v", err)
				break
			}
			sf.storedName = name
			sf.rawPath = path
		}
		staged = append(staged, sf)
	}
	return staged
}

func (s *DatasetService) processFile(ctx context.Context, area upload.Area, pack *dataset.Packager, sf stagedFile) fileOutcome {
	out := fileOutcome{file: domain.SourceFile{
		OriginalName: sf.originalName,
		StoredName:   sf.storedName,
		Status:       domain.FileStatusProcessed,
	}}
	if sf.earlyReason != "" {
		out.file.Status = sf.earlyStatus
		reason := sf.earlyReason
		out.file.Reason = &reason
		s.metrics.FilesTotal.WithLabelValues(string(out.file.Status)).Inc()
		return out
	}

	stem := strings.TrimSuffix(sf.storedName, filepath.Ext(sf.storedName))
	normalized := filepath.Join(area.WorkDir, stem+".wav")
	if err := s.normalizer.Normalize(ctx, sf.rawPath, normalized); err != nil {
		return s.fail(out, fmt.Sprintf("conversion failed: %v", err))
	}

	clip, err := audio.ReadWAV(normalized)
	if err != nil {
		return s.fail(out, fmt.Sprintf("decode failed: %v", err))
	}

	stats := audio.Analyze(clip)
	out.file.DurationSeconds = stats.DurationSeconds
	out.file.SNRDB = stats.SNR
	if err := audio.CheckQuality(stats, s.pipeline.Quality); err != nil {
		return s.reject(out, err.Error())
	}

	segs := audio.SplitOnSilence(clip, s.pipeline.Segmentation)
	if len(segs) == 0 {
		return s.reject(out, "no speech found")
	}

	for i, seg := range segs {
		if err := ctx.Err(); err != nil {
			return s.fail(out, "processing cancelled")
		}

		name := dataset.SegmentName(stem, i+1)
		wavPath := pack.WAVPath(name)
		if err := seg.Clip.WriteWAV(wavPath); err != nil {
			return s.fail(out, fmt.Sprintf("write segment: %v", err))
		}
		out.wavPaths = append(out.wavPaths, wavPath)

		entry := dataset.Entry{
			Filename:        name,
			StartSeconds:    seg.StartSeconds(),
			EndSeconds:      seg.EndSeconds(),
			DurationSeconds: seg.DurationSeconds(),
		}
		segment := domain.Segment{
			Filename:        name,
			StartSeconds:    seg.StartSeconds(),
			EndSeconds:      seg.EndSeconds(),
			DurationSeconds: seg.DurationSeconds(),
		}

		text, terr := s.transcriber.Transcribe(ctx, wavPath)
		if terr != nil {
			// the segment stays in the dataset with an empty transcript
			s.metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("transcription failed", slog.String("segment", name), slog.Any("error", terr))
			msg := terr.Error()
			entry.TranscriptionError = msg
			segment.TranscriptionError = &msg
		} else {
			s.metrics.TranscriptionsTotal.WithLabelValues("success").Inc()
			cleaned := transcribe.CleanTranscript(text)
			entry.Transcript = cleaned
			segment.Transcript = cleaned
		}

		out.entries = append(out.entries, entry)
		out.segments = append(out.segments, segment)
	}

	out.file.SegmentCount = len(out.segments)
	s.metrics.FilesTotal.WithLabelValues(string(domain.FileStatusProcessed)).Inc()
	s.metrics.SegmentsTotal.Add(float64(len(out.segments)))
	return out
}

func (s *DatasetService) reject(out fileOutcome, reason string) fileOutcome {
	return s.conclude(out, domain.FileStatusRejected, reason)
}

func (s *DatasetService) fail(out fileOutcome, reason string) fileOutcome {
	return s.conclude(out, domain.FileStatusFailed, reason)
}

// conclude closes a file's processing in a non-processed state and
// rolls back any segment wavs it already wrote, keeping the dataset
// directory consistent with its metadata.
func (s *DatasetService) conclude(out fileOutcome, status domain.FileStatus, reason string) fileOutcome {
	for _, path := range out.wavPaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove segment wav", slog.String("path", path), slog.Any("error", err))
		}
	}
	out.wavPaths = nil
	out.segments = nil
	out.entries = nil
	out.file.Status = status
	out.file.Reason = &reason
	out.file.SegmentCount = 0
	s.metrics.FilesTotal.WithLabelValues(string(status)).Inc()
	return out
}

func (s *DatasetService) finalize(ctx context.Context, batchID string, status domain.BatchStatus, fileCount, segmentCount int, archivePath *string) {
	if err := s.batches.Finalize(ctx, batchID, status, fileCount, segmentCount, archivePath); err != nil {
		s.logger.Error("finalize batch", slog.String("batch_id", batchID), slog.Any("error", err))
	}
}

// GetBatch loads a past batch with its files and segments.
func (s *DatasetService) GetBatch(ctx context.Context, id string) (BatchResult, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return BatchResult{}, ErrBatchNotFound
	}
	if err != nil {
		return BatchResult{}, err
	}

	files, err := s.files.ListByBatch(ctx, id)
	if err != nil {
		return BatchResult{}, err
	}
	segments, err := s.segments.ListByBatch(ctx, id)
	if err != nil {
		return BatchResult{}, err
	}

	byFile := make(map[string][]domain.Segment, len(files))
	for _, seg := range segments {
		byFile[seg.SourceFileID] = append(byFile[seg.SourceFileID], seg)
	}

	result := BatchResult{Batch: batch}
	if batch.ArchivePath != nil {
		result.ArchivePath = *batch.ArchivePath
		result.ArchiveName = dataset.ArchiveName
	}
	for _, file := range files {
		result.Files = append(result.Files, FileResult{File: file, Segments: byFile[file.ID]})
	}
	return result, nil
}

func (s *DatasetService) ListBatches(ctx context.Context, limit int) ([]domain.Batch, error) {
	return s.batches.List(ctx, limit)
}

// Archive returns the path and download name of the batch's archive.
func (s *DatasetService) Archive(ctx context.Context, id string) (string, string, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrBatchNotFound
	}
	if err != nil {
		return "", "", err
	}
	if batch.ArchivePath == nil {
		return "", "", ErrNoArchive
	}
	if _, err := os.Stat(*batch.ArchivePath); err != nil {
		return "", "", ErrNoArchive
	}
	return *batch.ArchivePath, dataset.ArchiveName, nil
}
