package posts

import (
	"time"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/media"
)

// Verification tags the capability token mailed to a post's submitter
type Verification struct{}

// State is the lifecycle state of a post. It is derived from the post's
// flags and persisted alongside them so listings can filter on it directly.
type State string

const (
	// StateUnverified posts are waiting for their submitter to redeem the mailed token
	StateUnverified State = "unverified"
	// StateModerated posts are verified but hidden until a moderator clears them
	StateModerated State = "moderated"
	// StatePublic posts appear in listings and serve their media
	StatePublic State = "public"
	// StateDeleted posts are soft-deleted and may be restored by their owner
	StateDeleted State = "deleted"
)

// States lists every lifecycle state
var States = []State{StateUnverified, StateModerated, StatePublic, StateDeleted}

// Post is a classifieds listing: either an item for sale or a garage sale.
//
// The submitter email is the owner key. Token is the private verification
// capability; it never leaves the service except inside the verification mail.
type Post struct {
	CreatedAt     time.Time                        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time                        `json:"updatedAt" db:"updated_at"`
	DeletedAt     *time.Time                       `json:"deletedAt,omitempty" db:"deleted_at"`
	StartTime     *time.Time                       `json:"startTime,omitempty" db:"start_time"`
	EndTime       *time.Time                       `json:"endTime,omitempty" db:"end_time"`
	ExactLocation *string                          `json:"exactLocation,omitempty" db:"exact_location"`
	Token         capability.Token[Verification]   `json:"-" db:"guid"`
	Email         string                           `json:"email" db:"email"`
	Title         string                           `json:"title" db:"title"`
	Description   string                           `json:"description" db:"description"`
	Price         string                           `json:"price" db:"price"`
	Location      string                           `json:"location" db:"location"`
	RemoteIP      string                           `json:"-" db:"remote_ip"`
	Media         []*media.Asset                   `json:"media"`
	ID            int64                            `json:"id" db:"id"`
	IsGarageSale  bool                             `json:"isGarageSale" db:"is_garage_sale"`
	EmailVerified bool                             `json:"emailVerified" db:"email_verified"`
	Moderated     bool                             `json:"moderated" db:"moderated"`
	Sticky        bool                             `json:"sticky" db:"sticky"`

	// verifying is set by MarkVerified so that MarkModerated can only be
	// applied in the same verification step
	verifying bool
}

// Content is the submitter-editable part of a post
type Content struct {
	StartTime     *time.Time `json:"startTime,omitempty"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	ExactLocation *string    `json:"exactLocation,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         string     `json:"price"`
	Location      string     `json:"location"`
	IsGarageSale  bool       `json:"isGarageSale"`
}

// NewPost validates content and email and builds an unverified post with a
// fresh verification token. Nothing is persisted.
func NewPost(content Content, email, remoteIP string, now time.Time) (*Post, error) {
	content = content.normalize()
	email = normalizeEmail(email)

	verr := validateContent(content)
	verr.addAll(validateEmail(email))
	if verr.hasErrors() {
		return nil, verr
	}

	now = now.UTC()
	p := &Post{
		Token:     capability.New[Verification](),
		Email:     email,
		RemoteIP:  remoteIP,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.setContent(content)
	return p, nil
}

// State derives the lifecycle state from the flags
func (p *Post) State() State {
	switch {
	case p.DeletedAt != nil:
		return StateDeleted
	case !p.EmailVerified:
		return StateUnverified
	case p.Moderated:
		return StateModerated
	default:
		return StatePublic
	}
}

// IsPublic reports whether the post, and therefore its media, is publicly visible
func (p *Post) IsPublic() bool {
	return p.State() == StatePublic
}

// Content returns the editable fields
func (p *Post) Content() Content {
	return Content{
		Title:         p.Title,
		Description:   p.Description,
		Price:         p.Price,
		Location:      p.Location,
		ExactLocation: p.ExactLocation,
		IsGarageSale:  p.IsGarageSale,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
	}
}

// UpdateContent replaces the editable fields after re-validating them.
// Deleted posts cannot be edited.
func (p *Post) UpdateContent(content Content, now time.Time) error {
	if p.State() == StateDeleted {
		return ErrInvalidTransition
	}
	content = content.normalize()
	if verr := validateContent(content); verr.hasErrors() {
		return verr
	}
	p.setContent(content)
	p.UpdatedAt = now.UTC()
	return nil
}

// MarkVerified flips emailVerified. Only legal from StateUnverified.
func (p *Post) MarkVerified(now time.Time) error {
	if p.State() != StateUnverified {
		return ErrInvalidTransition
	}
	p.EmailVerified = true
	p.UpdatedAt = now.UTC()
	p.verifying = true
	return nil
}

// MarkModerated hides a post pending review. It may only follow
// MarkVerified on the same instance; moderation is never applied later.
func (p *Post) MarkModerated() error {
	if !p.verifying {
		return ErrInvalidTransition
	}
	p.Moderated = true
	return nil
}

// SoftDelete sets the deletion marker. The verification and moderation
// flags are kept so Restore returns the post to where it was.
func (p *Post) SoftDelete(now time.Time) error {
	if p.DeletedAt != nil {
		return ErrInvalidTransition
	}
	at := now.UTC()
	p.DeletedAt = &at
	p.UpdatedAt = at
	return nil
}

// Restore clears the deletion marker
func (p *Post) Restore(now time.Time) error {
	if p.DeletedAt == nil {
		return ErrInvalidTransition
	}
	p.DeletedAt = nil
	p.UpdatedAt = now.UTC()
	return nil
}

func (p *Post) setContent(c Content) {
	p.Title = c.Title
	p.Description = c.Description
	p.Price = c.Price
	p.Location = c.Location
	p.ExactLocation = c.ExactLocation
	p.IsGarageSale = c.IsGarageSale
	p.StartTime = c.StartTime
	p.EndTime = c.EndTime
}
