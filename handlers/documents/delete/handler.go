// Package delete removes documents from a conversation. Requests without an
// {index} path value remove every document.
package delete

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/index"
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

	all := r.PathValue("index") == ""
	var position int
	if !all {
		var err error
		position, err = strconv.Atoi(r.PathValue("index"))
		if err != nil {
			respond.WithError(w, "invalid document index", http.StatusBadRequest)
			return
		}
	}

	s, err := h.sessions.Get(r.Context(), scope)
	if err != nil {
		h.log.Error("failed to get session", slog.String("scope", scope.String()), slog.Any("error", err))
		respond.WithError(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	if all {
		err = s.ClearDocuments(r.Context())
	} else {
		err = s.RemoveDocument(r.Context(), position)
	}
	if err != nil {
		if errors.Is(err, index.ErrDocumentNotFound) {
			respond.WithError(w, "document not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, session.ErrDeleted) {
			respond.WithError(w, "conversation was deleted", http.StatusConflict)
			return
		}
		h.log.Error("failed to remove documents", slog.String("scope", scope.String()), slog.Any("error", err))
		respond.WithError(w, "failed to remove documents", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
