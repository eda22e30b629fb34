package post

import (
	"net/http"
	"strconv"

	"Curbside/internal/api/middleware"
	"Curbside/internal/core/posts"
)

// ReadHandler serves the public listings and single post reads
type ReadHandler struct {
	service posts.Service
}

// NewReadHandler creates a new read handler
func NewReadHandler(service posts.Service) *ReadHandler {
	return &ReadHandler{service: service}
}

// List returns a handler for one listing kind.
// Query parameters: offset (latest, search), term (search)
func (h *ReadHandler) List(kind posts.ListKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		if raw := r.URL.Query().Get("offset"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, "InvalidRequest", "offset must be a non-negative integer")
				return
			}
			offset = parsed
		}

		req := posts.ListRequest{
			Kind:   kind,
			Term:   r.URL.Query().Get("term"),
			Offset: offset,
		}
		if kind == posts.ListMine {
			user := middleware.GetUser(r)
			if user == nil {
				writeError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
				return
			}
			req.Email = user.Email
		}

		views, err := h.service.ListPosts(r.Context(), req)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// HandleGet handles GET /posts/{id}
func (h *ReadHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetOwn handles GET /posts/{id}/edit, returning the owner's post in
// any state
func (h *ReadHandler) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	who, ok := requester(w, r)
	if !ok {
		return
	}
	post, err := h.service.GetOwnPost(r.Context(), who, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
