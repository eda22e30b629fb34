package post

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"Curbside/internal/core/posts"
)

type errorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message"`
	Fields  []posts.FieldError `json:"fields,omitempty"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeJSON(w, statusCode, errorResponse{Error: errorType, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// handleServiceError maps service errors to HTTP responses. Owner guard
// failures and rejections carry no detail.
func handleServiceError(w http.ResponseWriter, err error) {
	var verr *posts.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "InvalidRequest",
			Message: "One or more fields are invalid",
			Fields:  verr.Fields,
		})

	case errors.Is(err, posts.ErrRejected):
		writeError(w, http.StatusUnprocessableEntity, "Rejected", "The post could not be accepted")

	case errors.Is(err, posts.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "NotAuthorized", "Not authorized")

	case posts.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NotFound", "Not found")

	default:
		// Don't leak internal error details to clients
		log.Printf("Unexpected error in post handler: %v", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}
