package post

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/models"
	"github.com/a-h/chatrag/session"
	"github.com/a-h/respond"
	"github.com/tmc/langchaingo/llms"
)

// ContextSourceHeader lists, once per document, the documents whose chunks
// were added to the conversation as context.
const ContextSourceHeader = "X-Context-Source"

func New(log *slog.Logger, sessions *session.Manager, llm llms.Model, systemPrompt string, maxContextDocs int) Handler {
	return Handler{
		log:            log,
		sessions:       sessions,
		llm:            llm,
		systemPrompt:   systemPrompt,
		maxContextDocs: maxContextDocs,
	}
}

type Handler struct {
	log            *slog.Logger
	sessions       *session.Manager
	llm            llms.Model
	systemPrompt   string
	maxContextDocs int
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.GetScope(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.ChatPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.WithError(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.TopK == 0 {
		req.TopK = h.maxContextDocs
	}

	s, err := h.sessions.Get(r.Context(), scope)
	if err != nil {
		h.log.Error("failed to get session", slog.String("scope", scope.String()), slog.Any("error", err))
		respond.WithError(w, "failed to get session", http.StatusInternalServerError)
		return
	}
	human := models.ChatMessage{Type: models.ChatMessageTypeHuman, Content: req.Text}

	// If this is a test API key, don't use the LLM.
	if scope.Partition == "test-user-no-llm" {
		if err = writeTestMessage(w); err != nil {
			h.log.Warn("failed to write test message", slog.Any("error", err))
			return
		}
		s.AppendHistory(human, models.ChatMessage{Type: models.ChatMessageTypeAI, Content: TestMessage})
		return
	}

	// Retrieval failures are logged by the index and result in no context.
	var results []index.Result
	if !req.NoContext {
		results = s.Query(r.Context(), req.Text, req.TopK)
	}
	for _, name := range session.Sources(results) {
		w.Header().Add(ContextSourceHeader, name)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	msgs := h.messages(s.History(), results, req.Text)
	h.log.Debug("generating content", slog.String("scope", scope.String()), slog.Int("messages", len(msgs)), slog.Int("context", len(results)))

	var reply strings.Builder
	f := func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			return nil
		default:
			reply.Write(chunk)
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			if flusher, canFlush := w.(http.Flusher); canFlush {
				flusher.Flush()
			}
			return nil
		}
	}

	resp, err := h.llm.GenerateContent(r.Context(), msgs, llms.WithStreamingFunc(f))
	if err != nil {
		h.log.Error("failed to generate content", slog.String("scope", scope.String()), slog.Any("error", err))
		if reply.Len() == 0 {
			respond.WithError(w, "failed to generate content", http.StatusInternalServerError)
		}
		return
	}
	// Some providers return the whole reply without streaming it.
	if reply.Len() == 0 && len(resp.Choices) > 0 {
		reply.WriteString(resp.Choices[0].Content)
		if _, err = io.WriteString(w, resp.Choices[0].Content); err != nil {
			h.log.Warn("failed to write reply", slog.Any("error", err))
		}
	}

	s.AppendHistory(human, models.ChatMessage{Type: models.ChatMessageTypeAI, Content: reply.String()})
}

func (h Handler) messages(history []models.ChatMessage, results []index.Result, text string) (msgs []llms.MessageContent) {
	if h.systemPrompt != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, h.systemPrompt))
	}
	if c := session.FormatContext(results); c != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, c))
	}
	for _, m := range history {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageType(m.Type), m.Content))
	}
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, text))
}

const TestMessage = `Hello!

I'm a test message.

I'm here to help you test your integration with the API.

If you can see me, then your integration is working!`

func writeTestMessage(w http.ResponseWriter) (err error) {
	for chunk := range slices.Chunk([]rune(TestMessage), 4) {
		if _, err := io.WriteString(w, string(chunk)); err != nil {
			return err
		}
		if flusher, canFlush := w.(http.Flusher); canFlush {
			flusher.Flush()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
