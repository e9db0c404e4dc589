package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Env      string
	LogLevel string
	LogFormat string

	MaxUploadMB int64
	UploadDir   string
	ResultsDir  string
	FFmpegPath  string
	Workers     int

	Database DatabaseConfig
	Security SecurityConfig
	STT      STTConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver string
	DSN    string
	Path   string
}

type SecurityConfig struct {
	EncryptionKey string
}

type STTConfig struct {
	Backend       string
	BaseURL       string
	APIKey        string
	Model         string
	Language      string
	Prompt        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	RetryDelay    time.Duration
	ModelPath     string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:            getEnv("HTTP_PORT", "5000"),
			ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Env:       getEnv("APP_ENV", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MaxUploadMB: int64(getInt("MAX_UPLOAD_MB", 100)),
		UploadDir:   getEnv("UPLOAD_DIR", "user_uploads"),
		ResultsDir:  getEnv("RESULTS_DIR", "results"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		Workers:     getInt("PIPELINE_WORKERS", 4),

		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "sqlite"),
			DSN:    getEnv("DATABASE_DSN", ""),
			Path:   getEnv("DATABASE_PATH", "data/dataset.db"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", "local-dev-encryption-key"),
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			BaseURL:       getEnv("STT_BASE_URL", ""),
			APIKey:        getEnv("STT_API_KEY", ""),
			Model:         getEnv("STT_MODEL", "whisper-1"),
			Language:      getEnv("STT_LANGUAGE", "de"),
			Prompt:        getEnv("STT_PROMPT", ""),
			Timeout:       getDuration("STT_TIMEOUT", 120*time.Second),
			MaxRetries:    getInt("STT_MAX_RETRIES", 3),
			MaxConcurrent: getInt("STT_MAX_CONCURRENT", 4),
			RetryDelay:    getDuration("STT_RETRY_DELAY", 1*time.Second),
			ModelPath:     getEnv("WHISPER_MODEL_PATH", "models/ggml-base.bin"),
		},
	}
}

type CounterConfig struct {
	Server    ServerConfig
	LogLevel  string
	LogFormat string
	RedisHost string
	RedisPort string
	RedisDB   int
}

func LoadCounter() CounterConfig {
	return CounterConfig{
		Server: ServerConfig{
			Port:            getEnv("COUNTER_PORT", "8000"),
			ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnv("REDIS_PORT", "6379"),
		RedisDB:   getInt("REDIS_DB", 0),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
