package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/textsplitter"
)

var (
	ErrEmptyDocument    = errors.New("index: document has no text")
	ErrDocumentNotFound = errors.New("index: document not found")
)

type Document struct {
	Name       string      `json:"name"`
	Text       string      `json:"text"`
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
	CreatedAt  time.Time   `json:"createdAt"`
	WordCount  int         `json:"wordCount"`
	// Skipped is the number of chunks dropped because they could not be embedded.
	Skipped int `json:"skipped"`
}

type Result struct {
	Text     string
	Document string
	Score    float64
}

func New(log *slog.Logger, embedder embeddings.Embedder, splitter textsplitter.TextSplitter) *Index {
	return &Index{
		log:      log,
		embedder: embedder,
		splitter: splitter,
		Now:      time.Now,
	}
}

// Index is an insertion ordered collection of embedded documents.
//
// The document slice is never modified in place. Mutations build a new slice
// under the write lock, so a snapshot taken by a query stays valid while
// documents are added or removed.
type Index struct {
	log      *slog.Logger
	embedder embeddings.Embedder
	splitter textsplitter.TextSplitter
	Now      func() time.Time

	m         sync.RWMutex
	docs      []Document
	dimension int
}

func (idx *Index) snapshot() (docs []Document, dimension int) {
	idx.m.RLock()
	defer idx.m.RUnlock()
	return idx.docs, idx.dimension
}

// AddDocument splits the text into chunks, embeds each chunk and appends the
// result. Chunks that fail to embed are left out of the document.
func (idx *Index) AddDocument(ctx context.Context, name, text string) (doc Document, err error) {
	if strings.TrimSpace(text) == "" {
		return doc, ErrEmptyDocument
	}
	chunks, err := idx.splitter.SplitText(text)
	if err != nil {
		return doc, fmt.Errorf("index: failed to split text: %w", err)
	}

	_, dimension := idx.snapshot()

	doc = Document{
		Name:      name,
		Text:      text,
		CreatedAt: idx.Now(),
		WordCount: len(strings.Fields(text)),
	}
	for i, chunk := range chunks {
		vector, err := idx.embed(ctx, chunk)
		if err != nil {
			idx.log.Warn("skipping chunk", slog.String("document", name), slog.Int("chunk", i), slog.Any("error", err))
			doc.Skipped++
			continue
		}
		if dimension == 0 {
			dimension = len(vector)
		}
		if len(vector) != dimension {
			idx.log.Warn("skipping chunk", slog.String("document", name), slog.Int("chunk", i), slog.Int("dimension", len(vector)), slog.Int("expected", dimension))
			doc.Skipped++
			continue
		}
		doc.Chunks = append(doc.Chunks, chunk)
		doc.Embeddings = append(doc.Embeddings, vector)
	}

	idx.m.Lock()
	defer idx.m.Unlock()
	if idx.dimension == 0 && len(doc.Embeddings) > 0 {
		idx.dimension = dimension
	}
	if len(doc.Embeddings) > 0 && dimension != idx.dimension {
		// Another document fixed a different dimension while this one was being embedded.
		doc.Skipped += len(doc.Chunks)
		doc.Chunks, doc.Embeddings = nil, nil
	}
	idx.docs = append(slices.Clip(idx.docs), doc)
	idx.log.Debug("document added", slog.String("document", name), slog.Int("chunks", len(doc.Chunks)), slog.Int("skipped", doc.Skipped))
	return doc, nil
}

func (idx *Index) embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := idx.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("index: embedder returned %d vectors", len(vectors))
	}
	return vectors[0], nil
}

// Query returns up to topK chunks ordered by descending cosine similarity to
// the text. Retrieval is best-effort: any failure results in no results.
func (idx *Index) Query(ctx context.Context, text string, topK int) (results []Result) {
	docs, dimension := idx.snapshot()
	if topK <= 0 || dimension == 0 {
		return nil
	}

	query, err := idx.embedder.EmbedQuery(ctx, text)
	if err != nil {
		idx.log.Warn("failed to embed query", slog.Any("error", err))
		return nil
	}
	if len(query) != dimension {
		idx.log.Warn("query dimension mismatch", slog.Int("dimension", len(query)), slog.Int("expected", dimension))
		return nil
	}

	for _, doc := range docs {
		for i, vector := range doc.Embeddings {
			score := Cosine(query, vector)
			if math.IsNaN(score) {
				continue
			}
			results = append(results, Result{
				Text:     doc.Chunks[i],
				Document: doc.Name,
				Score:    score,
			})
		}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func (idx *Index) RemoveDocument(i int) error {
	idx.m.Lock()
	defer idx.m.Unlock()
	if i < 0 || i >= len(idx.docs) {
		return fmt.Errorf("%w: position %d of %d", ErrDocumentNotFound, i, len(idx.docs))
	}
	idx.docs = slices.Delete(slices.Clone(idx.docs), i, i+1)
	idx.resetDimension()
	return nil
}

func (idx *Index) Clear() {
	idx.m.Lock()
	defer idx.m.Unlock()
	idx.docs = nil
	idx.dimension = 0
}

// Restore replaces the contents of the index, e.g. with documents loaded from
// a store. Documents are trusted to be consistent with each other.
func (idx *Index) Restore(docs []Document) {
	idx.m.Lock()
	defer idx.m.Unlock()
	idx.docs = slices.Clone(docs)
	idx.resetDimension()
}

func (idx *Index) resetDimension() {
	idx.dimension = 0
	for _, doc := range idx.docs {
		if len(doc.Embeddings) > 0 {
			idx.dimension = len(doc.Embeddings[0])
			return
		}
	}
}

// Documents returns the documents in insertion order. The returned slice must
// not be modified.
func (idx *Index) Documents() []Document {
	docs, _ := idx.snapshot()
	return docs
}

func (idx *Index) Len() int {
	docs, _ := idx.snapshot()
	return len(docs)
}

func (idx *Index) Dimension() int {
	_, dimension := idx.snapshot()
	return dimension
}
