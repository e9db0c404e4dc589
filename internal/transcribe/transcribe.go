// Package transcribe turns audio segments into text through pluggable
// speech-to-text backends.
package transcribe

import (
	"context"
	"strings"
)

// Backend converts a single WAV file into raw text.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// KeySource resolves the API key for a provider at call time, so key
// rotations take effect without a restart.
type KeySource interface {
	Resolve(ctx context.Context, provider string) (string, error)
}

// StaticKey is a KeySource that always returns the same key.
type StaticKey string

func (k StaticKey) Resolve(context.Context, string) (string, error) {
	return string(k), nil
}

type Registry struct {
	backends map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

func (r *Registry) Register(name string, backend Backend) {
	r.backends[strings.ToLower(name)] = backend
}

func (r *Registry) Backend(name string) (Backend, bool) {
	backend, ok := r.backends[strings.ToLower(name)]
	return backend, ok
}
