package post

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Curbside/internal/api/middleware"
	"Curbside/internal/core/posts"
)

// LifecycleHandler serves the post write endpoints
type LifecycleHandler struct {
	service posts.Service
}

// NewLifecycleHandler creates a new lifecycle handler
func NewLifecycleHandler(service posts.Service) *LifecycleHandler {
	return &LifecycleHandler{service: service}
}

// HandleCreate handles POST /posts
// Request body: content fields, email, captchaToken and media [{guid, name}]
func (h *LifecycleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req posts.CreatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.RemoteIP = middleware.ClientIP(r)

	post, err := h.service.CreatePost(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleVerify handles POST /posts/v/{token}
// Response: the verified post and the owner credential
func (h *LifecycleHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.VerifyPost(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate handles PUT /posts/{id}
func (h *LifecycleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	who, ok := requester(w, r)
	if !ok {
		return
	}

	var req posts.UpdatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = id

	post, err := h.service.UpdatePost(r.Context(), who, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete handles DELETE /posts/{id}
func (h *LifecycleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	who, ok := requester(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), who, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRestore handles PATCH /posts/{id}, which undoes a soft delete
func (h *LifecycleHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	who, ok := requester(w, r)
	if !ok {
		return
	}

	if err := h.service.RestorePost(r.Context(), who, id); err != nil {
		handleServiceError(w, err)
		return
	}
	log.Printf("[POST-RESTORE] Restored post %d via API", id)
	w.WriteHeader(http.StatusNoContent)
}
