package routes

import (
	"github.com/go-chi/chi/v5"

	mediahandlers "Curbside/internal/api/handlers/media"
	"Curbside/internal/api/middleware"
	"Curbside/internal/core/media"
)

// RegisterMediaRoutes registers upload and public read endpoints.
//
// Route: POST /media   multipart upload, rate limited per client IP
// Route: GET /media/{id}   302 to a presigned URL when the asset is public
func RegisterMediaRoutes(r chi.Router, service media.Service, maxUploadSize int64, uploadLimiter middleware.Limiter) {
	upload := mediahandlers.NewUploadHandler(service, maxUploadSize)
	get := mediahandlers.NewGetHandler(service)

	r.With(middleware.RateLimit(uploadLimiter, "upload")).Post("/media", upload.HandleUpload)
	r.Get("/media/{id}", get.HandleGet)
}
