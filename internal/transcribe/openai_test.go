package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func writeDummyWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenAIBackendTranscribes(t *testing.T) {
	var gotAuth, gotModel string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"Hallo Welt! Nummer 1."}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	backend := NewOpenAIBackend(OpenAIConfig{
		Keys:     StaticKey("test-key-123"),
		BaseURL:  srv.URL + "/v1",
		Model:    "whisper-1",
		Language: "de",
	})

	text, err := backend.Transcribe(context.Background(), writeDummyWAV(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "Hallo Welt! Nummer 1." {
		t.Errorf("text = %q, want %q", text, "Hallo Welt! Nummer 1.")
	}
	if gotAuth != "Bearer test-key-123" {
		t.Errorf("Authorization = %q, want the resolved key", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q, want whisper-1", gotModel)
	}
}

func TestOpenAIBackendSurfacesAPIErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	backend := NewOpenAIBackend(OpenAIConfig{
		Keys:    StaticKey("wrong"),
		BaseURL: srv.URL + "/v1",
	})

	_, err := backend.Transcribe(context.Background(), writeDummyWAV(t))
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want an *openai.APIError", err)
	}
	if apiErr.HTTPStatusCode != http.StatusUnauthorized {
		t.Errorf("HTTPStatusCode = %d, want 401", apiErr.HTTPStatusCode)
	}
	if isRetryable(err) {
		t.Error("auth failures must not be retryable")
	}
}

type failingKeys struct{}

func (failingKeys) Resolve(context.Context, string) (string, error) {
	return "", errors.New("no key on file")
}

func TestOpenAIBackendPropagatesKeyErrors(t *testing.T) {
	backend := NewOpenAIBackend(OpenAIConfig{Keys: failingKeys{}})

	_, err := backend.Transcribe(context.Background(), "segment.wav")
	if err == nil || err.Error() != "no key on file" {
		t.Errorf("error = %v, want the key source failure", err)
	}
}
