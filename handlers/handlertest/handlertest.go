// Package handlertest provides the fakes shared by the handler tests.
package handlertest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/chunker"
	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/session"
	"github.com/tmc/langchaingo/llms"
)

const (
	APIKey = "test-api-key"
	User   = "test-user"
)

var Log = slog.New(slog.NewTextHandler(io.Discard, nil))

var ErrEmbed = errors.New("embedding unavailable")

// Embedder embeds text as the count of each letter a-z, so texts sharing
// letters are similar.
type Embedder struct {
	Fail bool
}

func (e Embedder) vector(text string) ([]float32, error) {
	if e.Fail {
		return nil, ErrEmbed
	}
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v, nil
}

func (e Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.vector(text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text)
}

// NewManager returns a session manager backed by a memory store.
func NewManager(e Embedder) *session.Manager {
	return session.New(Log, session.NewMemoryStore(), func() *index.Index {
		return index.New(Log, e, chunker.Window{Size: chunker.DefaultSize, Overlap: chunker.DefaultOverlap})
	})
}

// Serve routes the request to h through the API key middleware, so that path
// values and the user are populated as they are in the server.
func Serve(h http.Handler, pattern string, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, h)
	r.Header.Set("Authorization", "Bearer "+APIKey)
	w := httptest.NewRecorder()
	auth.New(map[string]string{APIKey: User}, mux).ServeHTTP(w, r)
	return w
}

// Model is a chat model that streams a fixed reply and records the messages
// it was sent.
type Model struct {
	Reply string
	Err   error

	m        sync.Mutex
	Messages [][]llms.MessageContent
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.m.Lock()
	m.Messages = append(m.Messages, messages)
	m.m.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, word := range strings.SplitAfter(m.Reply, " ") {
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.Reply}},
	}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Text returns the text parts of a message.
func Text(mc llms.MessageContent) string {
	var sb strings.Builder
	for _, p := range mc.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
