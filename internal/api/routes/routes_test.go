package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"Curbside/internal/api/middleware"
	"Curbside/internal/core/posts"
	"Curbside/internal/core/users"
)

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, token string) (*users.User, error) {
	return &users.User{Email: "o@b.co"}, nil
}

// listOnly answers listings with an empty page; other calls are not reached
type listOnly struct {
	posts.Service
	got posts.ListRequest
}

func (s *listOnly) ListPosts(ctx context.Context, req posts.ListRequest) ([]*posts.PostView, error) {
	s.got = req
	return []*posts.PostView{}, nil
}

func TestRegisterPostRoutes_ListingKinds(t *testing.T) {
	svc := &listOnly{}
	r := chi.NewRouter()
	RegisterPostRoutes(r, svc, middleware.NewOwnerAuthMiddleware(stubVerifier{}), middleware.NewRateLimiter(10, time.Minute))

	tests := []struct {
		path string
		kind posts.ListKind
	}{
		{"/posts", posts.ListLatest},
		{"/posts/garage", posts.ListGarage},
		{"/posts/search?term=x", posts.ListSearch},
		{"/posts/sticky", posts.ListSticky},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.kind, svc.got.Kind, tt.path)
	}
}

func TestRegisterPostRoutes_MineRequiresAuth(t *testing.T) {
	svc := &listOnly{}
	r := chi.NewRouter()
	RegisterPostRoutes(r, svc, middleware.NewOwnerAuthMiddleware(stubVerifier{}), middleware.NewRateLimiter(10, time.Minute))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/mine", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/posts/mine", nil)
	req.Header.Set("Authorization", "Bearer cred")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o@b.co", svc.got.Email)
}
