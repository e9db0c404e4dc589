package httpapi

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/media"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/service"
)

// PageHandler serves the browser-facing upload flow: the upload form, the
// per-file results page and the archive download.
type PageHandler struct {
	service    *service.DatasetService
	resultsDir string
	logger     *slog.Logger
}

func NewPageHandler(datasets *service.DatasetService, resultsDir string, logger *slog.Logger) *PageHandler {
	return &PageHandler{service: datasets, resultsDir: resultsDir, logger: logger}
}

func (h *PageHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.showForm)
	r.POST("/", h.handleUpload)
	r.GET("/downloads/:batch/:filename", h.downloadArchive)
}

func (h *PageHandler) showForm(c *gin.Context) {
	exts := media.SupportedExtensions()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Accept":  strings.Join(exts, ","),
		"Formats": strings.Join(exts, ", "),
	})
}

func (h *PageHandler) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	uploads := uploadsFromForm(form)
	if len(uploads) == 0 {
		// Submitting the empty form just returns to the upload page.
		c.Redirect(http.StatusFound, "/")
		return
	}

	result, err := h.service.ProcessBatch(c.Request.Context(), uploads)
	if err != nil {
		h.logger.Error("batch processing failed", slog.Any("error", err))
		c.HTML(http.StatusInternalServerError, "results.html", resultsView{
			Error: "Processing failed, please try again.",
		})
		return
	}

	c.HTML(http.StatusOK, "results.html", buildResultsView(result))
}

func (h *PageHandler) downloadArchive(c *gin.Context) {
	batchID := c.Param("batch")
	filename := c.Param("filename")
	if !safePathSegment(batchID) || !safePathSegment(filename) {
		c.String(http.StatusNotFound, "not found")
		return
	}

	full := filepath.Join(h.resultsDir, batchID, filename)
	rel, err := filepath.Rel(h.resultsDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		c.String(http.StatusNotFound, "not found")
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "not found")
		return
	}

	c.FileAttachment(full, filename)
}

// safePathSegment rejects anything that could escape the results directory
// when joined into a path.
func safePathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsAny(s, `/\`) {
		return false
	}
	return filepath.Base(s) == s
}

// uploadsFromForm collects the uploaded file headers. The form field is
// "files"; "file[]" is accepted as a legacy alias.
func uploadsFromForm(form *multipart.Form) []service.Upload {
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file[]"]
	}
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, service.Upload{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return uploads
}

type resultsView struct {
	Error         string
	BatchID       string
	Files         []fileView
	TotalSegments int
	NoneProcessed bool
	DownloadURL   string
	ArchiveName   string
}

type fileView struct {
	Name     string
	Status   string
	Duration string
	Segments int
	Reason   string
}

func buildResultsView(result service.BatchResult) resultsView {
	view := resultsView{
		BatchID:       result.Batch.ID,
		TotalSegments: result.Batch.SegmentCount,
	}
	processed := 0
	for _, fr := range result.Files {
		fv := fileView{
			Name:     fr.File.OriginalName,
			Status:   string(fr.File.Status),
			Segments: fr.File.SegmentCount,
		}
		if fr.File.DurationSeconds > 0 {
			fv.Duration = fmt.Sprintf("%.1fs", fr.File.DurationSeconds)
		}
		if fr.File.Reason != nil {
			fv.Reason = *fr.File.Reason
		}
		if fr.File.Status == domain.FileStatusProcessed {
			processed++
		}
		view.Files = append(view.Files, fv)
	}
	view.NoneProcessed = processed == 0
	if result.ArchivePath != "" {
		view.DownloadURL = "/downloads/" + result.Batch.ID + "/" + result.ArchiveName
		view.ArchiveName = result.ArchiveName
	}
	return view
}
