//go:build !whisper

package transcribe

import (
	"context"
	"errors"
)

var errWhisperDisabled = errors.New("whisper backend disabled (build with -tags whisper to enable)")

// WhisperBackend is the stub compiled when the whisper tag is absent.
type WhisperBackend struct{}

func NewWhisperBackend(modelPath, language string) (*WhisperBackend, error) {
	return &WhisperBackend{}, nil
}

func (b *WhisperBackend) Name() string {
	return "whisper"
}

func (b *WhisperBackend) Transcribe(context.Context, string) (string, error) {
	return "", errWhisperDisabled
}

func (b *WhisperBackend) Close() error {
	return nil
}
