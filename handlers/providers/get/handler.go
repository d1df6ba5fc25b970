package get

import (
	"net/http"

	"github.com/a-h/chatrag/models"
	"github.com/a-h/respond"
)

func New(catalog models.ProvidersGetResponse) Handler {
	return Handler{
		catalog: catalog,
	}
}

// Handler lists the catalog, or the entries for a single provider when the
// request has an {id} path value.
type Handler struct {
	catalog models.ProvidersGetResponse
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respond.WithJSON(w, h.catalog, http.StatusOK)
		return
	}
	p, ok := h.catalog.Filter(id)
	if !ok {
		respond.WithError(w, "provider not found", http.StatusNotFound)
		return
	}
	respond.WithJSON(w, p, http.StatusOK)
}
