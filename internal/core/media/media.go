package media

import (
	"time"

	"Curbside/internal/core/capability"
)

// Assignment tags capability tokens that bind an uploaded asset to a post.
type Assignment struct{}

// Asset is an uploaded file that is owned by at most one post.
// Its blob lives in object storage under ObjectKey; Public decides whether
// the blob may be served to anonymous readers.
type Asset struct {
	CreatedAt   time.Time                    `json:"createdAt" db:"created_at"`
	PostID      *int64                       `json:"postId,omitempty" db:"post_id"`
	Token       capability.Token[Assignment] `json:"-" db:"guid"`
	Name        string                       `json:"name" db:"name"`
	ContentType string                       `json:"contentType" db:"content_type"`
	ObjectKey   string                       `json:"-" db:"object_key"`
	ID          int64                        `json:"id" db:"id"`
	FileSize    int64                        `json:"fileSize" db:"file_size"`
	Public      bool                         `json:"public" db:"public"`
}

// IsAssigned reports whether the asset already belongs to a post.
func (a *Asset) IsAssigned() bool {
	return a.PostID != nil
}

// Submitted is one media entry of a create or update request.
// An entry with ID refers to media the post already owns; an entry with
// GUID carries the capability token of a fresh upload.
type Submitted struct {
	ID   *int64 `json:"id,omitempty"`
	GUID string `json:"guid,omitempty"`
	Name string `json:"name"`
}

// UploadResponse is returned to the uploader. GUID is the only way to
// later attach the asset to a post.
type UploadResponse struct {
	GUID     string `json:"guid"`
	ID       int64  `json:"id"`
	FileSize int64  `json:"fileSize"`
}
