package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a-h/chatrag/chunker"
	"github.com/google/go-cmp/cmp"
)

// stubEmbedder returns fixed vectors per input text.
type stubEmbedder struct {
	m       sync.Mutex
	vectors map[string][]float32
	fail    func(text string) bool
	calls   int
}

func (s *stubEmbedder) vector(text string) ([]float32, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.calls++
	if s.fail != nil && s.fail(text) {
		return nil, errors.New("embedding unavailable")
	}
	v, ok := s.vectors[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v, nil
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.vector(text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.vector(text)
}

func (s *stubEmbedder) Calls() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.calls
}

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestIndex(t *testing.T, e *stubEmbedder) *Index {
	t.Helper()
	w, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	if err != nil {
		t.Fatalf("failed to create chunker: %v", err)
	}
	idx := New(slog.New(slog.NewTextHandler(io.Discard, nil)), e, w)
	idx.Now = func() time.Time { return testTime }
	return idx
}

func TestQueryReturnsClosestDocumentFirst(t *testing.T) {
	e := &stubEmbedder{
		vectors: map[string][]float32{
			"cats are mammals": {1, 0, 0},
			"cars have wheels": {0, 1, 0},
			"tell me about cats": {1, 0, 0},
		},
	}
	idx := newTestIndex(t, e)
	ctx := context.Background()

	if _, err := idx.AddDocument(ctx, "A", "cats are mammals"); err != nil {
		t.Fatalf("failed to add document A: %v", err)
	}
	if _, err := idx.AddDocument(ctx, "B", "cars have wheels"); err != nil {
		t.Fatalf("failed to add document B: %v", err)
	}

	actual := idx.Query(ctx, "tell me about cats", 2)
	expected := []Result{
		{Text: "cats are mammals", Document: "A", Score: 1},
		{Text: "cars have wheels", Document: "B", Score: 0},
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Error(diff)
	}
}

func TestQueryOnEmptyIndexDoesNotEmbed(t *testing.T) {
	e := &stubEmbedder{vectors: map[string][]float32{"anything": {1}}}
	idx := newTestIndex(t, e)

	for _, q := range []string{"", "anything", "something else"} {
		if results := idx.Query(context.Background(), q, 3); len(results) != 0 {
			t.Errorf("expected no results for %q, got %d", q, len(results))
		}
	}
	if e.Calls() != 0 {
		t.Errorf("expected no embedding calls, got %d", e.Calls())
	}
}

func TestQueryLimitsAndOrdersResults(t *testing.T) {
	e := &stubEmbedder{
		vectors: map[string][]float32{
			"one":   {1, 0},
			"two":   {1, 1},
			"three": {0, 1},
			"four":  {1, 0.5},
			"query": {1, 0},
		},
	}
	idx := newTestIndex(t, e)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three", "four"} {
		if _, err := idx.AddDocument(ctx, text, text); err != nil {
			t.Fatalf("failed to add %q: %v", text, err)
		}
	}

	for k := 0; k <= 6; k++ {
		results := idx.Query(ctx, "query", k)
		if len(results) > k {
			t.Errorf("k=%d: got %d results", k, len(results))
		}
		for i := 1; i < len(results); i++ {
			if results[i].Score > results[i-1].Score {
				t.Errorf("k=%d: results are not sorted by descending score", k)
			}
		}
	}

	results := idx.Query(ctx, "query", 10)
	var names []string
	for _, r := range results {
		names = append(names, r.Document)
	}
	if diff := cmp.Diff([]string{"one", "four", "two", "three"}, names); diff != "" {
		t.Error(diff)
	}
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	e := &stubEmbedder{
		vectors: map[string][]float32{
			"first":  {2, 0},
			"second": {1, 0},
			"third":  {3, 0},
			"query":  {1, 0},
		},
	}
	idx := newTestIndex(t, e)
	ctx := context.Background()
	for _, text := range []string{"first", "second", "third"} {
		if _, err := idx.AddDocument(ctx, text, text); err != nil {
			t.Fatalf("failed to add %q: %v", text, err)
		}
	}
	results := idx.Query(ctx, "query", 3)
	var names []string
	for _, r := range results {
		names = append(names, r.Document)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, names); diff != "" {
		t.Error(diff)
	}
}

func TestQueryExcludesZeroMagnitudeVectors(t *testing.T) {
	e := &stubEmbedder{
		vectors: map[string][]float32{
			"zero":   {0, 0},
			"normal": {0, 1},
			"query":  {1, 0},
		},
	}
	idx := newTestIndex(t, e)
	ctx := context.Background()
	for _, text := range []string{"zero", "normal"} {
		if _, err := idx.AddDocument(ctx, text, text); err != nil {
			t.Fatalf("failed to add %q: %v", text, err)
		}
	}
	results := idx.Query(ctx, "query", 5)
	if len(results) != 1 || results[0].Document != "normal" {
		t.Errorf("expected only the non-zero vector to be returned, got %+v", results)
	}
}

func TestFailingEmbedder(t *testing.T) {
	e := &stubEmbedder{fail: func(string) bool { return true }}
	idx := newTestIndex(t, e)
	ctx := context.Background()

	doc, err := idx.AddDocument(ctx, "doc", "some text to index")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Chunks) != 0 || len(doc.Embeddings) != 0 {
		t.Errorf("expected no chunks, got %d chunks and %d embeddings", len(doc.Chunks), len(doc.Embeddings))
	}
	if doc.Skipped != 1 {
		t.Errorf("expected 1 skipped chunk, got %d", doc.Skipped)
	}
	if idx.Len() != 1 {
		t.Errorf("expected the document to be recorded, got %d documents", idx.Len())
	}
	if results := idx.Query(ctx, "some text", 3); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestFailedChunksAreOmitted(t *testing.T) {
	w, _ := chunker.New(4, 0)
	e := &stubEmbedder{
		vectors: map[string][]float32{"aaaa": {1, 0}, "cccc": {0, 1}},
		fail:    func(text string) bool { return text == "bbbb" },
	}
	idx := New(slog.New(slog.NewTextHandler(io.Discard, nil)), e, w)
	idx.Now = func() time.Time { return testTime }

	doc, err := idx.AddDocument(context.Background(), "doc", "aaaabbbbcccc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := Document{
		Name:       "doc",
		Text:       "aaaabbbbcccc",
		Chunks:     []string{"aaaa", "cccc"},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
		CreatedAt:  testTime,
		WordCount:  1,
		Skipped:    1,
	}
	if diff := cmp.Diff(expected, doc); diff != "" {
		t.Error(diff)
	}
}

func TestQueryEmbeddingFailureReturnsNothing(t *testing.T) {
	e := &stubEmbedder{
		vectors: map[string][]float32{"text": {1, 0}},
		fail:    func(text string) bool { return text == "query" },
	}
	idx := newTestIndex(t, e)
	if _, err := idx.AddDocument(context.Background(), "doc", "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results := idx.Query(context.Background(), "query", 3); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMismatchedDimensionsAreSkipped(t *testing.T) {
	e := &stubEmbedder{
		vectors: map[string][]float32{
			"first":  {1, 0},
			"second": {1, 0, 0},
			"query":  {1, 0, 0},
		},
	}
	idx := newTestIndex(t, e)
	ctx := context.Background()
	if _, err := idx.AddDocument(ctx, "first", "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, err := idx.AddDocument(ctx, "second", "second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Chunks) != 0 || doc.Skipped != 1 {
		t.Errorf("expected the mismatched chunk to be skipped, got %d chunks, %d skipped", len(doc.Chunks), doc.Skipped)
	}
	if results := idx.Query(ctx, "query", 3); len(results) != 0 {
		t.Errorf("expected a mismatched query to return nothing, got %d", len(results))
	}
}

func TestAddEmptyDocument(t *testing.T) {
	idx := newTestIndex(t, &stubEmbedder{})
	for _, text := range []string{"", "   \n\t"} {
		if _, err := idx.AddDocument(context.Background(), "empty", text); !errors.Is(err, ErrEmptyDocument) {
			t.Errorf("expected ErrEmptyDocument, got %v", err)
		}
	}
	if idx.Len() != 0 {
		t.Errorf("expected no documents, got %d", idx.Len())
	}
}

func TestSameNameIsNotDeduplicated(t *testing.T) {
	e := &stubEmbedder{vectors: map[string][]float32{"text": {1}}}
	idx := newTestIndex(t, e)
	for range 2 {
		if _, err := idx.AddDocument(context.Background(), "doc", "text"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if idx.Len() != 2 {
		t.Errorf("expected 2 documents, got %d", idx.Len())
	}
}

func TestLongDocumentIsChunked(t *testing.T) {
	text := strings.Repeat("abcdefghij", 120)
	e := &stubEmbedder{vectors: map[string][]float32{}}
	w, _ := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	chunks, _ := w.SplitText(text)
	for i, c := range chunks {
		e.vectors[c] = []float32{float32(i + 1), 1}
	}
	idx := newTestIndex(t, e)
	doc, err := idx.AddDocument(context.Background(), "long", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Chunks) != len(chunks) || len(doc.Embeddings) != len(chunks) {
		t.Errorf("expected %d chunks and embeddings, got %d and %d", len(chunks), len(doc.Chunks), len(doc.Embeddings))
	}
}

func TestRemoveDocument(t *testing.T) {
	e := &stubEmbedder{vectors: map[string][]float32{"a": {1}, "b": {1}, "c": {1}}}
	idx := newTestIndex(t, e)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		if _, err := idx.AddDocument(ctx, text, text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	before := idx.Documents()

	if err := idx.RemoveDocument(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, doc := range idx.Documents() {
		names = append(names, doc.Name)
	}
	if diff := cmp.Diff([]string{"a", "c"}, names); diff != "" {
		t.Error(diff)
	}
	if before[1].Name != "b" {
		t.Errorf("expected earlier snapshots to be unchanged, got %q", before[1].Name)
	}

	for _, i := range []int{-1, 2, 100} {
		if err := idx.RemoveDocument(i); !errors.Is(err, ErrDocumentNotFound) {
			t.Errorf("position %d: expected ErrDocumentNotFound, got %v", i, err)
		}
	}
}

func TestClear(t *testing.T) {
	e := &stubEmbedder{vectors: map[string][]float32{"a": {1}, "b": {1, 1}}}
	idx := newTestIndex(t, e)
	ctx := context.Background()
	if _, err := idx.AddDocument(ctx, "a", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx.Clear()
	if idx.Len() != 0 || idx.Dimension() != 0 {
		t.Fatalf("expected an empty index, got %d documents with dimension %d", idx.Len(), idx.Dimension())
	}
	// A cleared index accepts a new dimension.
	doc, err := idx.AddDocument(ctx, "b", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Chunks) != 1 || idx.Dimension() != 2 {
		t.Errorf("expected the new dimension to be accepted, got %d chunks, dimension %d", len(doc.Chunks), idx.Dimension())
	}
}

func TestRestore(t *testing.T) {
	e := &stubEmbedder{vectors: map[string][]float32{"query": {0, 1}}}
	idx := newTestIndex(t, e)
	idx.Restore([]Document{
		{Name: "x", Chunks: []string{"x1", "x2"}, Embeddings: [][]float32{{1, 0}, {0, 1}}},
	})
	if idx.Dimension() != 2 {
		t.Errorf("expected dimension 2, got %d", idx.Dimension())
	}
	results := idx.Query(context.Background(), "query", 1)
	if len(results) != 1 || results[0].Text != "x2" {
		t.Errorf("expected x2, got %+v", results)
	}
}

func TestConcurrentAddAndQuery(t *testing.T) {
	e := &stubEmbedder{vectors: map[string][]float32{"doc": {1, 1}, "query": {1, 0}}}
	idx := newTestIndex(t, e)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = idx.AddDocument(ctx, "doc", "doc")
		}()
		go func() {
			defer wg.Done()
			_ = idx.Query(ctx, "query", 5)
		}()
	}
	wg.Wait()
	if idx.Len() != 10 {
		t.Errorf("expected 10 documents, got %d", idx.Len())
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical vectors", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expected: 1},
		{name: "opposite vectors", a: []float32{1, 2}, b: []float32{-1, -2}, expected: -1},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "scaled vectors", a: []float32{1, 1}, b: []float32{5, 5}, expected: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actual := Cosine(tt.a, tt.b); math.Abs(actual-tt.expected) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.expected, actual)
			}
		})
	}
}

func TestCosineIsSymmetric(t *testing.T) {
	vectors := [][]float32{{1, 2, 3}, {-4, 0.5, 2}, {0.1, 0.1, 9}, {3, -3, 0}}
	for _, a := range vectors {
		if math.Abs(Cosine(a, a)-1) > 1e-9 {
			t.Errorf("expected similarity of %v with itself to be 1, got %v", a, Cosine(a, a))
		}
		for _, b := range vectors {
			if Cosine(a, b) != Cosine(b, a) {
				t.Errorf("expected sim(%v, %v) == sim(%v, %v)", a, b, b, a)
			}
		}
	}
}

func TestCosineDegenerate(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}},
		{name: "both zero", a: []float32{0, 0}, b: []float32{0, 0}},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}},
		{name: "empty", a: nil, b: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actual := Cosine(tt.a, tt.b); !math.IsNaN(actual) {
				t.Errorf("expected NaN, got %v", actual)
			}
		})
	}
}
