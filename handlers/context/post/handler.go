package post

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/chatrag/auth"
	"github.com/a-h/chatrag/models"
	"github.com/a-h/chatrag/session"
	"github.com/a-h/respond"
)

func New(log *slog.Logger, sessions *session.Manager, maxContextDocs int) Handler {
	return Handler{
		log:            log,
		sessions:       sessions,
		maxContextDocs: maxContextDocs,
	}
}

type Handler struct {
	log            *slog.Logger
	sessions       *session.Manager
	maxContextDocs int
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.GetScope(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.ContextPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
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

	resp := models.ContextPostResponse{
		Results: []models.ContextResult{},
	}
	if req.Text != "" {
		for _, result := range s.Query(r.Context(), req.Text, req.TopK) {
			resp.Results = append(resp.Results, models.ContextResult{
				Text:     result.Text,
				Document: result.Document,
				Score:    result.Score,
			})
		}
	}

	respond.WithJSON(w, resp, http.StatusOK)
}
