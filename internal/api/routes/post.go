package routes

import (
	"github.com/go-chi/chi/v5"

	"Curbside/internal/api/handlers/post"
	"Curbside/internal/api/middleware"
	"Curbside/internal/core/posts"
)

// RegisterPostRoutes registers the post lifecycle and listing endpoints.
// createLimiter throttles POST /posts per client IP.
func RegisterPostRoutes(r chi.Router, service posts.Service, authMiddleware *middleware.OwnerAuthMiddleware, createLimiter middleware.Limiter) {
	lifecycle := post.NewLifecycleHandler(service)
	read := post.NewReadHandler(service)

	r.Route("/posts", func(r chi.Router) {
		// Public listings
		r.Get("/", read.List(posts.ListLatest))
		r.Get("/garage", read.List(posts.ListGarage))
		r.Get("/search", read.List(posts.ListSearch))
		r.Get("/sticky", read.List(posts.ListSticky))
		r.Get("/{id}", read.HandleGet)

		// Anonymous creation and verification by emailed token
		r.With(middleware.RateLimit(createLimiter, "create")).Post("/", lifecycle.HandleCreate)
		r.Post("/v/{token}", lifecycle.HandleVerify)

		// Owner endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/mine", read.List(posts.ListMine))
			r.Get("/{id}/edit", read.HandleGetOwn)
			r.Put("/{id}", lifecycle.HandleUpdate)
			r.Delete("/{id}", lifecycle.HandleDelete)
			r.Patch("/{id}", lifecycle.HandleRestore)
		})
	})
}
