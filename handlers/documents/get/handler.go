package get

import (
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/models"
	"github.com/a-h/chatrag/session"
	"github.com/a-h/respond"
)

func New(log *slog.Logger, sessions *session.Manager) Handler {
	return Handler{
		log:      log,
		sessions: sessions,
	}
}

type Handler struct {
	log      *slog.Logger
	sessions *session.Manager
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.GetScope(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	s, err := h.sessions.Get(r.Context(), scope)
	if err != nil {
		h.log.Error("failed to get session", slog.String("scope", scope.String()), slog.Any("error", err))
		respond.WithError(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	docs := s.Documents()
	resp := models.DocumentsGetResponse{
		Documents: make([]models.DocumentSummary, len(docs)),
		Total:     len(docs),
	}
	for i, doc := range docs {
		resp.Documents[i] = models.DocumentSummary{
			Index:     i,
			Name:      doc.Name,
			Chunks:    len(doc.Chunks),
			Words:     doc.WordCount,
			Size:      utf8.RuneCountInString(doc.Text),
			CreatedAt: doc.CreatedAt,
		}
	}

	respond.WithJSON(w, resp, http.StatusOK)
}
