package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"Curbside/internal/auth"
	"Curbside/internal/core/users"
)

// Context keys for storing user information
type contextKey string

const (
	UserKey contextKey = "user"
)

// CredentialVerifier resolves an owner credential to its user
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*users.User, error)
}

// OwnerAuthMiddleware authenticates owner credentials issued at post
// verification. Credentials arrive as "Authorization: Bearer <credential>".
type OwnerAuthMiddleware struct {
	verifier CredentialVerifier
}

// NewOwnerAuthMiddleware creates a new owner auth middleware
func NewOwnerAuthMiddleware(verifier CredentialVerifier) *OwnerAuthMiddleware {
	return &OwnerAuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid credential with 401 and
// injects the user into the context otherwise
func (m *OwnerAuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, ok := bearer(r)
		if !ok {
			writeAuthError(w, "Missing or malformed Authorization header. Expected: Bearer <token>")
			return
		}

		user, err := m.verifier.Verify(r.Context(), credential)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredential) {
				log.Printf("[AUTH_FAILURE] type=lookup_error ip=%s method=%s path=%s error=%v",
					r.RemoteAddr, r.Method, r.URL.Path, err)
				http.Error(w, `{"error":"InternalServerError","message":"An internal error occurred"}`, http.StatusInternalServerError)
				return
			}
			log.Printf("[AUTH_FAILURE] type=verification_failed ip=%s method=%s path=%s",
				r.RemoteAddr, r.Method, r.URL.Path)
			writeAuthError(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserKey, user)))
	})
}

func bearer(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// GetUser returns the authenticated user, or nil
func GetUser(r *http.Request) *users.User {
	user, _ := r.Context().Value(UserKey).(*users.User)
	return user
}

// SetTestUser sets the user in the context for testing purposes
// This function should ONLY be used in tests to mock authenticated users
func SetTestUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// writeAuthError writes a JSON error response for authentication failures
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	response := `{"error":"AuthenticationRequired","message":"` + message + `"}`
	if _, err := w.Write([]byte(response)); err != nil {
		log.Printf("Failed to write auth error response: %v", err)
	}
}
