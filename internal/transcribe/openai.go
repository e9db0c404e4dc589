package transcribe

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI-compatible backend. BaseURL may
// point at any server speaking the audio/transcriptions protocol, such
// as a local faster-whisper instance.
type OpenAIConfig struct {
	Keys     KeySource
	BaseURL  string
	Model    string
	Language string
	Prompt   string
	Timeout  time.Duration
}

type OpenAIBackend struct {
	keys     KeySource
	baseURL  string
	model    string
	language string
	prompt   string
	timeout  time.Duration
}

func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	keys := cfg.Keys
	if keys == nil {
		keys = StaticKey("")
	}
	return &OpenAIBackend{
		keys:     keys,
		baseURL:  cfg.BaseURL,
		model:    model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
		timeout:  cfg.Timeout,
	}
}

func (b *OpenAIBackend) Name() string {
	return "openai"
}

func (b *OpenAIBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	key, err := b.keys.Resolve(ctx, b.Name())
	if err != nil {
		return "", err
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	// the client is rebuilt per call so resolved keys are always current
	clientCfg := openai.DefaultConfig(key)
	if b.baseURL != "" {
		clientCfg.BaseURL = b.baseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    b.model,
		FilePath: wavPath,
		Language: b.language,
		Prompt:   b.prompt,
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	return resp.Text, nil
}
