package get

import (
	"log/slog"
	"net/http"

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

	resp := models.HistoryGetResponse{
		Messages: s.History(),
	}
	if resp.Messages == nil {
		resp.Messages = []models.ChatMessage{}
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
