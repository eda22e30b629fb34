package posts

import (
	"context"
	"time"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/media"
	"Curbside/internal/core/users"
)

// Service defines the post lifecycle operations.
// Flow: CreatePost -> (mail) -> VerifyPost -> Update/Delete/Restore by the owner
type Service interface {
	// CreatePost persists an unverified post and mails its verification token
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)

	// VerifyPost redeems a verification token and returns the post plus an
	// owner credential
	VerifyPost(ctx context.Context, token string) (*VerifyPostResponse, error)

	UpdatePost(ctx context.Context, requester Requester, req UpdatePostRequest) (*Post, error)
	DeletePost(ctx context.Context, requester Requester, id int64) error
	RestorePost(ctx context.Context, requester Requester, id int64) error

	// GetPost returns a single publicly visible post
	GetPost(ctx context.Context, id int64) (*PostView, error)

	// GetOwnPost returns the requester's post in any state, for editing
	GetOwnPost(ctx context.Context, requester Requester, id int64) (*Post, error)

	ListPosts(ctx context.Context, req ListRequest) ([]*PostView, error)
}

// Repository defines the data access interface for posts.
// The *ForUpdate lookups lock the row for the rest of the transaction.
type Repository interface {
	// Create inserts an unverified post and sets its ID
	Create(ctx context.Context, post *Post) error

	// GetByID returns the post in any state, including deleted
	GetByID(ctx context.Context, id int64) (*Post, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*Post, error)
	GetByTokenForUpdate(ctx context.Context, token capability.Token[Verification]) (*Post, error)

	// UpdateContent persists the editable fields
	UpdateContent(ctx context.Context, post *Post) error

	// MarkVerified persists the verification and moderation flags only if the
	// stored row is still unverified. A lost race returns *ConflictError.
	MarkVerified(ctx context.Context, post *Post) error

	// UpdateDeletion persists the soft-delete marker
	UpdateDeletion(ctx context.Context, post *Post) error

	// CountByEmail aggregates every post by email, soft-deleted ones included
	CountByEmail(ctx context.Context, email string) (SubmitterHistory, error)

	// ListPublic and GetPublic only ever return posts in StatePublic
	ListPublic(ctx context.Context, q ListQuery) ([]*Post, error)
	GetPublic(ctx context.Context, id int64) (*Post, error)

	// ListAll pages through every post by ascending id
	ListAll(ctx context.Context, afterID int64, limit int) ([]*Post, error)
}

// Repositories groups the repositories a lifecycle operation touches
type Repositories interface {
	Posts() Repository
	Media() media.Repository
	Users() users.UserRepository
}

// Store is the persistent store. WithTx runs fn with repositories bound to
// one transaction: it commits if fn returns nil and rolls back otherwise.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(r Repositories) error) error
}

// CredentialIssuer mints an owner credential bound to the user's secret
type CredentialIssuer interface {
	Issue(user *users.User) (string, error)
}

// BlobRemover deletes media blobs once their rows are gone
type BlobRemover interface {
	RemoveObjects(ctx context.Context, keys []string)
}

// Requester is the authenticated caller of an owner operation
type Requester struct {
	Email       string
	IsModerator bool
}

func (r Requester) owns(p *Post) bool {
	email := normalizeEmail(r.Email)
	return email != "" && email == p.Email
}

// CreatePostRequest represents input for creating a new post
type CreatePostRequest struct {
	Content
	Email        string            `json:"email"`
	CaptchaToken string            `json:"captchaToken"`
	RemoteIP     string            `json:"-"`
	Media        []media.Submitted `json:"media,omitempty"`
}

// UpdatePostRequest replaces the content and media list of a post
type UpdatePostRequest struct {
	Content
	Media []media.Submitted `json:"media"`
	ID    int64             `json:"-"`
}

// VerifyPostResponse is returned when a verification token is redeemed
type VerifyPostResponse struct {
	Post  *Post  `json:"post"`
	Token string `json:"token"`
}

// ListKind selects a public listing
type ListKind string

const (
	ListLatest ListKind = "latest"
	ListGarage ListKind = "garage"
	ListSearch ListKind = "search"
	ListSticky ListKind = "sticky"
	ListMine   ListKind = "mine"
)

// ListRequest is the caller-facing listing input
type ListRequest struct {
	Kind   ListKind
	Term   string
	Email  string
	Offset int
}

// ListQuery is what repositories receive
type ListQuery struct {
	Now    time.Time
	Kind   ListKind
	Term   string
	Email  string
	Offset int
	Limit  int
}
