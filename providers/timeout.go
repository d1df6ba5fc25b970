package providers

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/embeddings"
)

// WithTimeout limits the duration of each embedding call. A zero or negative
// timeout returns e unchanged.
func WithTimeout(e embeddings.Embedder, timeout time.Duration) embeddings.Embedder {
	if timeout <= 0 {
		return e
	}
	return timeoutEmbedder{e: e, timeout: timeout}
}

type timeoutEmbedder struct {
	e       embeddings.Embedder
	timeout time.Duration
}

func (t timeoutEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.e.EmbedDocuments(ctx, texts)
}

func (t timeoutEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.e.EmbedQuery(ctx, text)
}
