package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/config"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/httpapi"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/media"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/metrics"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/repository"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/server"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/service"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/storage"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/transcribe"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/upload"
)

func main() {
	var (
		envFile      = pflag.String("env-file", ".env", "path to the env file")
		pipelineFile = pflag.String("config", "", "path to the pipeline YAML, defaults apply when empty")
	)
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load env file: %v", err)
	}

	cfg := config.Load()
	logger := initLogger(cfg.LogLevel, cfg.LogFormat)

	pipeline, err := config.LoadPipeline(*pipelineFile)
	if err != nil {
		logger.Error("invalid pipeline configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Env == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("database open failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.RunMigrations(ctx, db); err != nil {
		logger.Error("database migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	batches := repository.NewBatchRepository(db)
	files := repository.NewSourceFileRepository(db)
	segments := repository.NewSegmentRepository(db)
	providerKeys := repository.NewProviderKeyRepository(db)

	keyService := service.NewProviderKeyService(providerKeys, cfg.Security.EncryptionKey)
	resolver := service.NewKeyResolver(keyService, cfg.STT.APIKey, cfg.STT.BaseURL != "")

	registry := transcribe.NewRegistry()
	openaiBackend := transcribe.NewOpenAIBackend(transcribe.OpenAIConfig{
		Keys:     resolver,
		BaseURL:  cfg.STT.BaseURL,
		Model:    cfg.STT.Model,
		Language: cfg.STT.Language,
		Prompt:   cfg.STT.Prompt,
		Timeout:  cfg.STT.Timeout,
	})
	registry.Register(openaiBackend.Name(), openaiBackend)
	if cfg.STT.Backend == "whisper" {
		whisperBackend, err := transcribe.NewWhisperBackend(cfg.STT.ModelPath, cfg.STT.Language)
		if err != nil {
			logger.Error("whisper backend init failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer whisperBackend.Close()
		registry.Register(whisperBackend.Name(), whisperBackend)
	}

	backend, ok := registry.Backend(cfg.STT.Backend)
	if !ok {
		logger.Error("unknown transcription backend", slog.String("backend", cfg.STT.Backend))
		os.Exit(1)
	}
	pool := transcribe.NewPool(backend, transcribe.PoolConfig{
		MaxConcurrent: cfg.STT.MaxConcurrent,
		MaxRetries:    cfg.STT.MaxRetries,
		RetryDelay:    cfg.STT.RetryDelay,
	}, logger)

	normalizer := media.NewNormalizer(cfg.FFmpegPath, pipeline.Audio.TargetSampleRate, logger)
	if err := normalizer.Check(); err != nil {
		logger.Warn("ffmpeg not found, uploads will fail until it is installed",
			slog.String("binary", cfg.FFmpegPath))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	staging := upload.NewManager(cfg.UploadDir, logger)

	datasets := service.NewDatasetService(service.DatasetDeps{
		Pipeline:       pipeline,
		Staging:        staging,
		Normalizer:     normalizer,
		Transcriber:    pool,
		Batches:        batches,
		Files:          files,
		Segments:       segments,
		Metrics:        m,
		Logger:         logger,
		ResultsDir:     cfg.ResultsDir,
		Workers:        cfg.Workers,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
	})

	handler := httpapi.NewRouter(
		httpapi.NewPageHandler(datasets, cfg.ResultsDir, logger),
		httpapi.NewBatchHandler(datasets, logger),
		httpapi.NewProviderKeyHandler(keyService, logger),
		m,
		promhttp.Handler(),
	)

	srv := server.New(cfg.Server, handler, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func initLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
