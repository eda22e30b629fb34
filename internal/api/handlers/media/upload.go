package media

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"Curbside/internal/api/handlers"
	"Curbside/internal/core/media"
)

// multipartOverhead is the slack allowed on top of the file size for form
// boundaries and the other fields
const multipartOverhead = 64 * 1024

// UploadHandler handles media uploads
type UploadHandler struct {
	service       media.Service
	maxUploadSize int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service media.Service, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{service: service, maxUploadSize: maxUploadSize}
}

// HandleUpload handles POST /media
// Multipart form: file (required), name (optional display name)
// Response: {guid, id, fileSize}; guid is needed to attach the upload to a post
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// 1. Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	// 2. Parse the form
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", "File too large")
			return
		}
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Expected a multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Printf("Failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	// 3. Store
	resp, err := h.service.Upload(r.Context(), name, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode upload response: %v", err)
	}
}
