package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "5000" {
		t.Errorf("Server.Port = %q, want 5000", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.MaxUploadMB != 100 {
		t.Errorf("MaxUploadMB = %d, want 100", cfg.MaxUploadMB)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.STT.Backend != "openai" {
		t.Errorf("STT.Backend = %q, want openai", cfg.STT.Backend)
	}
	if cfg.STT.Language != "de" {
		t.Errorf("STT.Language = %q, want de", cfg.STT.Language)
	}
	if cfg.STT.Timeout != 120*time.Second {
		t.Errorf("STT.Timeout = %v, want 120s", cfg.STT.Timeout)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("MAX_UPLOAD_MB", "25")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://app@db/voices")
	t.Setenv("STT_BACKEND", "whisper")
	t.Setenv("STT_TIMEOUT", "30")
	t.Setenv("PIPELINE_WORKERS", "8")

	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.MaxUploadMB != 25 {
		t.Errorf("MaxUploadMB = %d, want 25", cfg.MaxUploadMB)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://app@db/voices" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.STT.Backend != "whisper" {
		t.Errorf("STT.Backend = %q, want whisper", cfg.STT.Backend)
	}
	if cfg.STT.Timeout != 30*time.Second {
		t.Errorf("STT.Timeout = %v, want 30s", cfg.STT.Timeout)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")
	t.Setenv("STT_TIMEOUT", "soon")

	cfg := Load()
	if cfg.MaxUploadMB != 100 {
		t.Errorf("MaxUploadMB = %d, want the 100 default", cfg.MaxUploadMB)
	}
	if cfg.STT.Timeout != 120*time.Second {
		t.Errorf("STT.Timeout = %v, want the 120s default", cfg.STT.Timeout)
	}
}

func TestLoadCounterDefaults(t *testing.T) {
	cfg := LoadCounter()

	if cfg.Server.Port != "8000" {
		t.Errorf("Server.Port = %q, want 8000", cfg.Server.Port)
	}
	if cfg.RedisHost != "localhost" || cfg.RedisPort != "6379" {
		t.Errorf("redis address = %s:%s, want localhost:6379", cfg.RedisHost, cfg.RedisPort)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want 0", cfg.RedisDB)
	}
}

func TestLoadCounterEnvironment(t *testing.T) {
	t.Setenv("COUNTER_PORT", "9000")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "3")

	cfg := LoadCounter()
	if cfg.Server.Port != "9000" {
		t.Errorf("Server.Port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.RedisHost != "cache.internal" || cfg.RedisPort != "6380" || cfg.RedisDB != 3 {
		t.Errorf("redis config = %s:%s db %d", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
	}
}

func TestDefaultPipelineValidates(t *testing.T) {
	p := DefaultPipeline()
	if err := p.Validate(); err != nil {
		t.Fatalf("default pipeline invalid: %v", err)
	}
	if p.Audio.TargetSampleRate != 22050 {
		t.Errorf("TargetSampleRate = %d, want 22050", p.Audio.TargetSampleRate)
	}
	if p.Quality.MinSNRDB != 15 {
		t.Errorf("MinSNRDB = %g, want 15", p.Quality.MinSNRDB)
	}
	if p.Segmentation.MinSilenceMs != 500 || p.Segmentation.KeepSilenceMs != 250 {
		t.Errorf("segmentation defaults = %+v", p.Segmentation)
	}
}

func TestLoadPipelineFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	doc := `
audio:
  target_sample_rate: 16000
quality:
  min_snr_db: 20
segmentation:
  min_silence_ms: 300
  max_segment_ms: 12000
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline failed: %v", err)
	}
	if p.Audio.TargetSampleRate != 16000 {
		t.Errorf("TargetSampleRate = %d, want 16000", p.Audio.TargetSampleRate)
	}
	if p.Quality.MinSNRDB != 20 {
		t.Errorf("MinSNRDB = %g, want 20", p.Quality.MinSNRDB)
	}
	if p.Segmentation.MinSilenceMs != 300 {
		t.Errorf("MinSilenceMs = %d, want 300", p.Segmentation.MinSilenceMs)
	}
	// Untouched keys keep their defaults.
	if p.Segmentation.KeepSilenceMs != 250 {
		t.Errorf("KeepSilenceMs = %d, want the 250 default", p.Segmentation.KeepSilenceMs)
	}
}

func TestLoadPipelineEmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPipeline("")
	if err != nil {
		t.Fatalf("LoadPipeline(\"\") failed: %v", err)
	}
	if p != DefaultPipeline() {
		t.Errorf("pipeline = %+v, want defaults", p)
	}
}

func TestLoadPipelineRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "sample rate out of range",
			doc:     "audio:\n  target_sample_rate: 1000\n",
			wantErr: "target_sample_rate",
		},
		{
			name:    "negative snr",
			doc:     "quality:\n  min_snr_db: -3\n",
			wantErr: "min_snr_db",
		},
		{
			name:    "zero silence window",
			doc:     "segmentation:\n  min_silence_ms: 0\n",
			wantErr: "min_silence_ms",
		},
		{
			name:    "max segment below silence window",
			doc:     "segmentation:\n  max_segment_ms: 100\n",
			wantErr: "max_segment_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pipeline.yaml")
			if err := os.WriteFile(path, []byte(tt.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadPipeline(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadPipeline error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
