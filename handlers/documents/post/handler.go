package post

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/extract"
	"github.com/a-h/chatrag/index"
	"github.com/a-h/chatrag/models"
	"github.com/a-h/chatrag/session"
	"github.com/a-h/respond"
)

// DefaultMaxBodyBytes limits request bodies, which carry file content as base64.
const DefaultMaxBodyBytes = 32 << 20

func New(log *slog.Logger, sessions *session.Manager, maxBodyBytes int64) Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return Handler{
		log:          log,
		sessions:     sessions,
		maxBodyBytes: maxBodyBytes,
	}
}

type Handler struct {
	log          *slog.Logger
	sessions     *session.Manager
	maxBodyBytes int64
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.GetScope(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.DocumentsPostRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respond.WithError(w, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if req.Document.Name == "" {
		respond.WithError(w, "document name is required", http.StatusBadRequest)
		return
	}

	text := req.Document.Text
	if len(req.Document.Content) > 0 {
		text, err = extract.Text(r.Context(), req.Document.Name, req.Document.Content)
		if err != nil {
			h.log.Warn("failed to extract text", slog.String("name", req.Document.Name), slog.Any("error", err))
			if errors.Is(err, extract.ErrNoText) {
				respond.WithError(w, "document contains no text", http.StatusBadRequest)
				return
			}
			respond.WithError(w, "failed to extract text", http.StatusBadRequest)
			return
		}
	}

	s, err := h.sessions.Get(r.Context(), scope)
	if err != nil {
		h.log.Error("failed to get session", slog.String("scope", scope.String()), slog.Any("error", err))
		respond.WithError(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	doc, position, err := s.AddDocument(r.Context(), req.Document.Name, text)
	if err != nil {
		if errors.Is(err, index.ErrEmptyDocument) {
			respond.WithError(w, "document contains no text", http.StatusBadRequest)
			return
		}
		if errors.Is(err, session.ErrDeleted) {
			respond.WithError(w, "conversation was deleted", http.StatusConflict)
			return
		}
		h.log.Error("failed to add document", slog.String("scope", scope.String()), slog.Any("error", err))
		respond.WithError(w, "failed to add document", http.StatusInternalServerError)
		return
	}
	h.log.Info("document added", slog.String("scope", scope.String()), slog.String("name", doc.Name),
		slog.Int("chunks", len(doc.Chunks)), slog.Int("skipped", doc.Skipped))

	respond.WithJSON(w, models.DocumentsPostResponse{
		Index:   position,
		Name:    doc.Name,
		Chunks:  len(doc.Chunks),
		Skipped: doc.Skipped,
	}, http.StatusOK)
}
