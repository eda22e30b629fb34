package media

import (
	"context"
	"io"
	"net/url"
	"time"

	"Curbside/internal/core/capability"
)

// Repository defines the data access interface for media assets.
// Implementations may be bound to a transaction; the visibility manager
// relies on that to change media in the same unit as the owning post.
type Repository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, id int64) (*Asset, error)
	GetByObjectKey(ctx context.Context, key string) (*Asset, error)

	// AssignByToken binds the unassigned asset holding token to postID.
	// It only succeeds while post_id is still NULL and returns ErrNotFound
	// otherwise.
	AssignByToken(ctx context.Context, token capability.Token[Assignment], postID int64, name string, public bool) (*Asset, error)

	ListByPost(ctx context.Context, postID int64) ([]*Asset, error)
	ListByPosts(ctx context.Context, postIDs []int64) (map[int64][]*Asset, error)

	// SetVisibility flips every asset owned by postID and returns how many
	// rows actually changed.
	SetVisibility(ctx context.Context, postID int64, public bool) (int64, error)

	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error

	// ListOrphans returns unassigned assets created before cutoff.
	ListOrphans(ctx context.Context, cutoff time.Time, limit int) ([]*Asset, error)
	// DeleteOrphan removes the asset only if it is still unassigned.
	DeleteOrphan(ctx context.Context, id int64) (bool, error)
}

// ObjectStore holds the uploaded blobs.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (*url.URL, error)
}

// Service defines media operations that run outside a post lifecycle
// transaction.
type Service interface {
	// Upload stores the blob and records an unassigned, private asset.
	Upload(ctx context.Context, name, contentType string, body io.Reader, size int64) (*UploadResponse, error)

	// Open returns a short-lived URL for a public asset.
	Open(ctx context.Context, id int64) (*url.URL, error)

	// IsPublicObject reports whether the blob at key belongs to a public
	// asset right now. Object stores that serve their own links consult it
	// on every request.
	IsPublicObject(ctx context.Context, key string) (bool, error)

	// RemoveObjects deletes blobs whose rows are already gone. Failures are
	// logged, not returned.
	RemoveObjects(ctx context.Context, keys []string)

	// PurgeOrphans deletes unassigned uploads older than maxAge.
	PurgeOrphans(ctx context.Context, maxAge time.Duration) (int, error)
}
