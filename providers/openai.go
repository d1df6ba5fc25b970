package providers

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedderClient creates embeddings with the OpenAI API. It satisfies
// langchaingo's embeddings.EmbedderClient so it can be wrapped with
// embeddings.NewEmbedder.
type OpenAIEmbedderClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedderClient(apiKey, baseURL, model string) (*OpenAIEmbedderClient, error) {
	if apiKey == "" {
		return nil, errors.New("providers: an API key is required for OpenAI embeddings")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedderClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (c *OpenAIEmbedderClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("providers: OpenAI embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("providers: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("providers: embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		l2normalize(v)
		vectors[d.Index] = v
	}
	return vectors, nil
}

func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
