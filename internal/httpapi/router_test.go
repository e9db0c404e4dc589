package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/audio"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/config"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/metrics"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/repository"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/service"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/storage"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/upload"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeNormalizer synthesizes a WAV instead of invoking ffmpeg; the
// uploaded content selects the signal shape.
type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(ctx context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "silent" {
		clip := &audio.Clip{Samples: make([]int, 16000), SampleRate: 8000}
		return clip.WriteWAV(dst)
	}

	samples := make([]int, 0, 16000)
	tone := func(ms int) {
		n := ms * 8
		for i := 0; i < n; i++ {
			t := float64(i) / 8000
			samples = append(samples, int(16384*math.Sin(2*math.Pi*440*t)))
		}
	}
	tone(500)
	samples = append(samples, make([]int, 8000)...)
	tone(500)
	clip := &audio.Clip{Samples: samples, SampleRate: 8000}
	return clip.WriteWAV(dst)
}

type fixedTranscriber struct{ text string }

func (f fixedTranscriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if f.text == "" {
		return "", errors.New("stt down")
	}
	return f.text, nil
}

type testApp struct {
	router     http.Handler
	resultsDir string
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	db, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(context.Background(), db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	resultsDir := t.TempDir()

	datasets := service.NewDatasetService(service.DatasetDeps{
		Pipeline:       config.DefaultPipeline(),
		Staging:        upload.NewManager(t.TempDir(), logger),
		Normalizer:     fakeNormalizer{},
		Transcriber:    fixedTranscriber{text: "Hallo Welt! Nummer 1."},
		Batches:        repository.NewBatchRepository(db),
		Files:          repository.NewSourceFileRepository(db),
		Segments:       repository.NewSegmentRepository(db),
		Metrics:        m,
		Logger:         logger,
		ResultsDir:     resultsDir,
		Workers:        2,
		MaxUploadBytes: 1 << 20,
	})
	keys := service.NewProviderKeyService(repository.NewProviderKeyRepository(db), "test-secret")

	router := NewRouter(
		NewPageHandler(datasets, resultsDir, logger),
		NewBatchHandler(datasets, logger),
		NewProviderKeyHandler(keys, logger),
		m,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	return testApp{router: router, resultsDir: resultsDir}
}

func (a testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// multipartBody builds an upload request body with the files in order.
func multipartBody(t *testing.T, field string, files [][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "dataset_batches_total")
}
