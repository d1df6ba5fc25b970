package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/models"
	"github.com/a-h/chatrag/session"
	"github.com/a-h/respond"
	"github.com/tmc/langchaingo/llms"
)

// New creates a handler that answers a single question from a conversation's
// documents. Unlike chat, queries are not added to the conversation history.
func New(log *slog.Logger, sessions *session.Manager, llm llms.Model, maxContextDocs int, systemPrompt string, userPrompt func(query string, context string) (string, error)) Handler {
	return Handler{
		log:            log,
		sessions:       sessions,
		llm:            llm,
		maxContextDocs: maxContextDocs,
		systemPrompt:   systemPrompt,
		userPrompt:     userPrompt,
	}
}

type Handler struct {
	log            *slog.Logger
	sessions       *session.Manager
	llm            llms.Model
	maxContextDocs int
	systemPrompt   string
	userPrompt     func(query string, context string) (string, error)
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.GetScope(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.QueryPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if req.TopK == 0 {
		req.TopK = h.maxContextDocs
	}

	var sb strings.Builder
	if !req.NoContext {
		s, err := h.sessions.Get(r.Context(), scope)
		if err != nil {
			h.log.Error("failed to get session", slog.String("scope", scope.String()), slog.Any("error", err))
			respond.WithError(w, "failed to get session", http.StatusInternalServerError)
			return
		}
		results := s.Query(r.Context(), req.Text, req.TopK)
		for _, result := range results {
			sb.WriteString("Context from ")
			sb.WriteString(result.Document)
			sb.WriteString("\n")
			sb.WriteString(result.Text)
			sb.WriteString("\n")
		}
		h.log.Info("query context", slog.String("scope", scope.String()), slog.Any("documents", session.Sources(results)))
	}
	prompt, err := h.userPrompt(req.Text, sb.String())
	if err != nil {
		h.log.Error("failed to generate prompt", slog.Any("error", err))
		respond.WithError(w, "failed to generate prompt", http.StatusInternalServerError)
		return
	}

	f := func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			return nil
		default:
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			if flusher, canFlush := w.(http.Flusher); canFlush {
				flusher.Flush()
			}
			return nil
		}
	}

	_, err = h.llm.GenerateContent(r.Context(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, h.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithStreamingFunc(f))
	if err != nil {
		h.log.Error("failed to generate content", slog.Any("error", err))
		respond.WithError(w, "failed to generate content", http.StatusInternalServerError)
		return
	}
}
