package httpapi

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/service"
)

// BatchHandler exposes the dataset pipeline as a JSON API for scripted
// clients; the browser flow in PageHandler wraps the same service.
type BatchHandler struct {
	service *service.DatasetService
	logger  *slog.Logger
}

func NewBatchHandler(datasets *service.DatasetService, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{service: datasets, logger: logger}
}

func (h *BatchHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.createBatch)
	r.GET("", h.listBatches)
	r.GET("/:id", h.getBatch)
	r.GET("/:id/archive", h.downloadArchive)
}

func (h *BatchHandler) createBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	uploads := uploadsFromForm(form)
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	result, err := h.service.ProcessBatch(c.Request.Context(), uploads)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBatchResponse(result))
}

func (h *BatchHandler) listBatches(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	batches, err := h.service.ListBatches(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := make([]batchSummary, 0, len(batches))
	for _, b := range batches {
		resp = append(resp, toBatchSummary(b))
	}
	c.JSON(http.StatusOK, gin.H{"batches": resp})
}

func (h *BatchHandler) getBatch(c *gin.Context) {
	result, err := h.service.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(result))
}

func (h *BatchHandler) downloadArchive(c *gin.Context) {
	path, name, err := h.service.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.FileAttachment(path, name)
}

func (h *BatchHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBatchNotFound), errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
	case errors.Is(err, service.ErrNoArchive):
		c.JSON(http.StatusNotFound, gin.H{"error": "no archive for this batch"})
	case errors.Is(err, service.ErrMissingAPIKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no API key configured for the transcription provider"})
	case errors.Is(err, service.ErrProviderNotSupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": "transcription provider not supported"})
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type batchSummary struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	FileCount    int       `json:"file_count"`
	SegmentCount int       `json:"segment_count"`
	ArchiveURL   string    `json:"archive_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type batchResponse struct {
	batchSummary
	Files []fileResponse `json:"files"`
}

type fileResponse struct {
	ID              string            `json:"id"`
	OriginalName    string            `json:"original_name"`
	Status          string            `json:"status"`
	Reason          *string           `json:"reason,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
	SNRDB           float64           `json:"snr_db"`
	SegmentCount    int               `json:"segment_count"`
	Segments        []segmentResponse `json:"segments"`
}

type segmentResponse struct {
	ID              string  `json:"id"`
	Filename        string  `json:"filename"`
	Transcript      string  `json:"transcript"`
	StartSeconds    float64 `json:"start_seconds"`
	EndSeconds      float64 `json:"end_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           *string `json:"error,omitempty"`
}

func toBatchSummary(b domain.Batch) batchSummary {
	s := batchSummary{
		ID:           b.ID,
		Status:       string(b.Status),
		FileCount:    b.FileCount,
		SegmentCount: b.SegmentCount,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if b.ArchivePath != nil {
		s.ArchiveURL = "/api/v1/batches/" + b.ID + "/archive"
	}
	return s
}

func toBatchResponse(result service.BatchResult) batchResponse {
	resp := batchResponse{batchSummary: toBatchSummary(result.Batch)}
	for _, fr := range result.Files {
		f := fileResponse{
			ID:              fr.File.ID,
			OriginalName:    fr.File.OriginalName,
			Status:          string(fr.File.Status),
			Reason:          fr.File.Reason,
			DurationSeconds: fr.File.DurationSeconds,
			SNRDB:           fr.File.SNRDB,
			SegmentCount:    fr.File.SegmentCount,
			Segments:        make([]segmentResponse, 0, len(fr.Segments)),
		}
		for _, seg := range fr.Segments {
			f.Segments = append(f.Segments, segmentResponse{
				ID:              seg.ID,
				Filename:        seg.Filename,
				Transcript:      seg.Transcript,
				StartSeconds:    seg.StartSeconds,
				EndSeconds:      seg.EndSeconds,
				DurationSeconds: seg.DurationSeconds,
				Error:           seg.TranscriptionError,
			})
		}
		resp.Files = append(resp.Files, f)
	}
	return resp
}
