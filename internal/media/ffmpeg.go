// Package media shells out to ffmpeg for container and codec
// conversion. Decoding Opus, AAC, and friends stays ffmpeg's job; the
// rest of the pipeline only ever sees mono 16-bit PCM WAV.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrFFmpegNotFound = errors.New("ffmpeg binary not found")

// supportedExtensions mirrors the formats WhatsApp exports plus the
// common lossless ones.
var supportedExtensions = map[string]bool{
	".opus": true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
}

// IsSupported reports whether the filename carries an accepted audio
// extension.
func IsSupported(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SupportedExtensions lists the accepted extensions for display.
func SupportedExtensions() []string {
	return []string{".opus", ".mp3", ".wav", ".m4a", ".aac", ".flac"}
}

// Normalizer converts arbitrary audio inputs to mono 16-bit PCM WAV at
// a fixed sample rate.
type Normalizer struct {
	binary     string
	sampleRate int
	logger     *slog.Logger
}

func NewNormalizer(binary string, sampleRate int, logger *slog.Logger) *Normalizer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Normalizer{binary: binary, sampleRate: sampleRate, logger: logger}
}

// Check verifies the ffmpeg binary is reachable.
func (n *Normalizer) Check() error {
	if _, err := exec.LookPath(n.binary); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, n.binary)
	}
	return nil
}

// Normalize transcodes src into dst as mono 16-bit PCM WAV.
func (n *Normalizer) Normalize(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, n.binary, n.args(src, dst)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", filepath.Base(src), err, lastLine(stderr.String()))
	}

	n.logger.Debug("normalized audio",
		slog.String("src", filepath.Base(src)),
		slog.Int("sample_rate", n.sampleRate))
	return nil
}

func (n *Normalizer) args(src, dst string) []string {
	return []string{
		"-y",
		"-nostdin",
		"-i", src,
		"-ac", "1",
		"-ar", strconv.Itoa(n.sampleRate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		dst,
	}
}

// lastLine extracts the final non-empty stderr line, which is where
// ffmpeg puts the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
