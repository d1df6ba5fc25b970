// Package delete ends a conversation, removing its history, documents and
// persisted state.
package delete

import (
	"log/slog"
	"net/http"

	"github.com/a-h/chatrag/auth"
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

	if err := h.sessions.Delete(r.Context(), scope); err != nil {
		h.log.Error("failed to delete conversation", slog.String("scope", scope.String()), slog.Any("error", err))
		respond.WithError(w, "failed to delete conversation", http.StatusInternalServerError)
		return
	}
	h.log.Info("conversation deleted", slog.String("scope", scope.String()))

	w.WriteHeader(http.StatusNoContent)
}
