package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"path/filepath"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const maxBackoff = 30 * time.Second

type PoolConfig struct {
	MaxConcurrent int
	MaxRetries    int
	RetryDelay    time.Duration
}

// Pool bounds concurrent backend calls with a semaphore and retries
// transient failures with exponential backoff.
type Pool struct {
	backend    Backend
	sem        chan struct{}
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewPool(backend Backend, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Pool{
		backend:    backend,
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

func (p *Pool) Transcribe(ctx context.Context, wavPath string) (string, error) {
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff(attempt)
			p.logger.Warn("retrying transcription",
				slog.String("file", filepath.Base(wavPath)),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := p.backend.Transcribe(ctx, wavPath)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("transcription failed after %d attempts: %w", p.maxRetries+1, lastErr)
}

func (p *Pool) backoff(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * p.retryDelay
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

// isRetryable treats server-side and transport-level failures as
// transient. Client errors (bad request, auth) fail immediately.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= http.StatusInternalServerError ||
			apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
