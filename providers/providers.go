// Package providers selects the chat and embedding models used by the server.
//
// The server runs in one of two modes. In local mode both chat and embeddings
// are served by Ollama. In cloud mode the chat model comes from a hosted
// provider, and embeddings from the configured embedding provider.
package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

const (
	ChatOpenAI    = "openai"
	ChatAnthropic = "anthropic"
	ChatGoogleAI  = "googleai"
	ChatNVIDIA    = "nvidia"
	ChatAzure     = "azure"

	EmbeddingOllama = "ollama"
	EmbeddingOpenAI = "openai"
	EmbeddingGoogle = "google"
)

const nvidiaBaseURL = "https://integrate.api.nvidia.com/v1"

type Config struct {
	Mode Mode

	OllamaURL string

	ChatProvider string
	ChatModel    string
	ChatAPIKey   string
	// ChatBaseURL overrides the endpoint of OpenAI compatible providers.
	ChatBaseURL     string
	AzureAPIVersion string

	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string

	HTTPClient *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// NewModel creates the chat model for the configured mode.
func NewModel(ctx context.Context, c Config) (llms.Model, error) {
	switch c.Mode {
	case ModeLocal:
		return newOllama(c, c.ChatModel)
	case ModeCloud:
		return newCloudModel(ctx, c)
	}
	return nil, fmt.Errorf("providers: unknown mode %q", c.Mode)
}

func newOllama(c Config, model string) (*ollama.LLM, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithHTTPClient(c.httpClient()),
		ollama.WithServerURL(c.OllamaURL))
	if err != nil {
		return nil, fmt.Errorf("providers: failed to create Ollama client: %w", err)
	}
	return llm, nil
}

func newCloudModel(ctx context.Context, c Config) (llms.Model, error) {
	if c.ChatAPIKey == "" {
		return nil, fmt.Errorf("providers: an API key is required for chat provider %q", c.ChatProvider)
	}
	switch c.ChatProvider {
	case ChatOpenAI, ChatNVIDIA:
		opts := []openai.Option{
			openai.WithToken(c.ChatAPIKey),
			openai.WithModel(c.ChatModel),
			openai.WithHTTPClient(c.httpClient()),
		}
		baseURL := c.ChatBaseURL
		if baseURL == "" && c.ChatProvider == ChatNVIDIA {
			baseURL = nvidiaBaseURL
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		return openai.New(opts...)
	case ChatAzure:
		if c.ChatBaseURL == "" {
			return nil, fmt.Errorf("providers: a base URL is required for chat provider %q", c.ChatProvider)
		}
		return openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithToken(c.ChatAPIKey),
			openai.WithModel(c.ChatModel),
			openai.WithBaseURL(c.ChatBaseURL),
			openai.WithAPIVersion(c.AzureAPIVersion),
			openai.WithHTTPClient(c.httpClient()))
	case ChatAnthropic:
		return anthropic.New(
			anthropic.WithToken(c.ChatAPIKey),
			anthropic.WithModel(c.ChatModel),
			anthropic.WithHTTPClient(c.httpClient()))
	case ChatGoogleAI:
		return googleai.New(ctx,
			googleai.WithAPIKey(c.ChatAPIKey),
			googleai.WithDefaultModel(c.ChatModel))
	}
	return nil, fmt.Errorf("providers: unknown chat provider %q", c.ChatProvider)
}

// NewEmbedder creates the embedder. Local mode always embeds with Ollama.
func NewEmbedder(ctx context.Context, c Config) (embeddings.Embedder, error) {
	provider := c.EmbeddingProvider
	if c.Mode == ModeLocal {
		provider = EmbeddingOllama
	}
	var client embeddings.EmbedderClient
	var err error
	switch provider {
	case EmbeddingOllama:
		client, err = newOllama(c, c.EmbeddingModel)
	case EmbeddingOpenAI:
		client, err = NewOpenAIEmbedderClient(c.EmbeddingAPIKey, c.EmbeddingBaseURL, c.EmbeddingModel)
	case EmbeddingGoogle:
		if c.EmbeddingAPIKey == "" {
			return nil, fmt.Errorf("providers: an API key is required for embedding provider %q", provider)
		}
		client, err = googleai.New(ctx,
			googleai.WithAPIKey(c.EmbeddingAPIKey),
			googleai.WithDefaultEmbeddingModel(c.EmbeddingModel))
	default:
		return nil, fmt.Errorf("providers: unknown embedding provider %q", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("providers: failed to create embedding client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("providers: failed to create embedder: %w", err)
	}
	return emb, nil
}
