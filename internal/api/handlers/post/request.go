package post

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Curbside/internal/api/middleware"
	"Curbside/internal/core/posts"
)

// maxBodyBytes bounds JSON request bodies. Descriptions top out well below it.
const maxBodyBytes = 256 * 1024

// decodeBody decodes a size limited JSON body and writes the error response
// itself when it fails
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return false
	}
	return true
}

// postID parses the {id} route parameter
func postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "NotFound", "Not found")
		return 0, false
	}
	return id, true
}

// requester builds the owner identity from the authenticated user
func requester(w http.ResponseWriter, r *http.Request) (posts.Requester, bool) {
	user := middleware.GetUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return posts.Requester{}, false
	}
	return posts.Requester{Email: user.Email, IsModerator: user.IsModerator}, true
}
