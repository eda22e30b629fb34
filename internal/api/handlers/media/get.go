package media

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Curbside/internal/api/handlers"
	"Curbside/internal/core/media"
)

// GetHandler redirects to a short-lived URL for a public asset
type GetHandler struct {
	service media.Service
}

// NewGetHandler creates a new media read handler
func NewGetHandler(service media.Service) *GetHandler {
	return &GetHandler{service: service}
}

// HandleGet handles GET /media/{id}. Private and unknown assets are both 404.
func (h *GetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		handlers.WriteError(w, http.StatusNotFound, "NotFound", "Media not found")
		return
	}

	target, err := h.service.Open(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target.String(), http.StatusFound)
}
