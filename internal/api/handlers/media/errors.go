package media

import (
	"errors"
	"log"
	"net/http"

	"Curbside/internal/api/handlers"
	"Curbside/internal/core/media"
)

func handleServiceError(w http.ResponseWriter, err error) {
	var verr *media.ValidationError
	switch {
	case errors.As(err, &verr):
		handlers.WriteError(w, http.StatusUnprocessableEntity, "InvalidRequest", verr.Message)
	case errors.Is(err, media.ErrUnsupportedType):
		handlers.WriteError(w, http.StatusUnsupportedMediaType, "UnsupportedMediaType", "Only image uploads are accepted")
	case errors.Is(err, media.ErrTooLarge):
		handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", "File too large")
	case media.IsNotFound(err):
		handlers.WriteError(w, http.StatusNotFound, "NotFound", "Media not found")
	default:
		log.Printf("Unexpected error in media handler: %v", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError", "An internal error occurred")
	}
}
