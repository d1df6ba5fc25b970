package providers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewModel(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "local mode uses Ollama",
			config: Config{Mode: ModeLocal, OllamaURL: "http://127.0.0.1:11434/", ChatModel: "mistral-nemo"},
		},
		{
			name:   "OpenAI with a key",
			config: Config{Mode: ModeCloud, ChatProvider: ChatOpenAI, ChatModel: "gpt-4o-mini", ChatAPIKey: "key"},
		},
		{
			name:   "NVIDIA with a key",
			config: Config{Mode: ModeCloud, ChatProvider: ChatNVIDIA, ChatModel: "meta/llama-3.1-8b-instruct", ChatAPIKey: "key"},
		},
		{
			name:   "Anthropic with a key",
			config: Config{Mode: ModeCloud, ChatProvider: ChatAnthropic, ChatModel: "claude-3-5-haiku-latest", ChatAPIKey: "key"},
		},
		{
			name:        "cloud providers need a key",
			config:      Config{Mode: ModeCloud, ChatProvider: ChatOpenAI},
			expectError: true,
		},
		{
			name:        "Azure needs a base URL",
			config:      Config{Mode: ModeCloud, ChatProvider: ChatAzure, ChatAPIKey: "key"},
			expectError: true,
		},
		{
			name:        "unknown providers are rejected",
			config:      Config{Mode: ModeCloud, ChatProvider: "unknown", ChatAPIKey: "key"},
			expectError: true,
		},
		{
			name:        "unknown modes are rejected",
			config:      Config{Mode: "hybrid"},
			expectError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewModel(context.Background(), tt.config)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m == nil {
				t.Errorf("expected a model")
			}
		})
	}
}

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "local mode ignores the embedding provider",
			config: Config{Mode: ModeLocal, EmbeddingProvider: "unknown", EmbeddingModel: "nomic-embed-text", OllamaURL: "http://127.0.0.1:11434/"},
		},
		{
			name:   "OpenAI with a key",
			config: Config{Mode: ModeCloud, EmbeddingProvider: EmbeddingOpenAI, EmbeddingModel: "text-embedding-3-small", EmbeddingAPIKey: "key"},
		},
		{
			name:        "OpenAI needs a key",
			config:      Config{Mode: ModeCloud, EmbeddingProvider: EmbeddingOpenAI},
			expectError: true,
		},
		{
			name:        "Google needs a key",
			config:      Config{Mode: ModeCloud, EmbeddingProvider: EmbeddingGoogle},
			expectError: true,
		},
		{
			name:        "unknown providers are rejected",
			config:      Config{Mode: ModeCloud, EmbeddingProvider: "voyage"},
			expectError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmbedder(context.Background(), tt.config)
			if tt.expectError != (err != nil) {
				t.Errorf("expected error: %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestOpenAIEmbedderClient(t *testing.T) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		// Returned out of order to check the index is respected.
		_, _ = w.Write([]byte(`{
  "object": "list",
  "data": [
    {"object": "embedding", "index": 1, "embedding": [0, 0, 2]},
    {"object": "embedding", "index": 0, "embedding": [3, 4, 0]}
  ],
  "model": "text-embedding-3-small",
  "usage": {"prompt_tokens": 2, "total_tokens": 2}
}`))
	}))
	defer s.Close()

	c, err := NewOpenAIEmbedderClient("key", s.URL, "text-embedding-3-small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vectors, err := c.CreateEmbedding(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Model != "text-embedding-3-small" || len(req.Input) != 2 {
		t.Errorf("unexpected request: %+v", req)
	}
	expected := [][]float32{{0.6, 0.8, 0}, {0, 0, 1}}
	if len(vectors) != len(expected) {
		t.Fatalf("expected %d vectors, got %d", len(expected), len(vectors))
	}
	for i := range expected {
		for j := range expected[i] {
			if math.Abs(float64(vectors[i][j]-expected[i][j])) > 1e-6 {
				t.Errorf("vector %d: expected %v, got %v", i, expected[i], vectors[i])
				break
			}
		}
	}
}

func TestCatalog(t *testing.T) {
	for _, p := range append(Catalog.Chat, Catalog.Embedding...) {
		if p.ID == "" || len(p.Models) == 0 {
			t.Errorf("provider %q has no models", p.Name)
		}
	}
}
