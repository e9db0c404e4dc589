//go:build whisper

package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/audio"
)

// WhisperBackend runs whisper.cpp in-process through its cgo bindings.
// Build with -tags whisper and a compiled libwhisper to enable it.
type WhisperBackend struct {
	model    whisper.Model
	language string

	// whisper.cpp contexts are not safe for concurrent use
	mu sync.Mutex
}

func NewWhisperBackend(modelPath, language string) (*WhisperBackend, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", modelPath, err)
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	return &WhisperBackend{model: model, language: language}, nil
}

func (b *WhisperBackend) Name() string {
	return "whisper"
}

func (b *WhisperBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	clip, err := audio.ReadWAV(wavPath)
	if err != nil {
		return "", err
	}

	samples := make([]float32, len(clip.Samples))
	for i, s := range clip.Samples {
		samples[i] = float32(s) / 32768.0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := b.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}
	if b.language != "" {
		if err := wctx.SetLanguage(b.language); err != nil {
			return "", fmt.Errorf("set language %q: %w", b.language, err)
		}
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var text strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		text.WriteString(segment.Text)
		text.WriteString(" ")
	}
	return strings.TrimSpace(text.String()), nil
}

func (b *WhisperBackend) Close() error {
	if b.model != nil {
		b.model.Close()
	}
	return nil
}
