package posts

// SubmitterHistory aggregates the posts of one email, counting the post
// being verified and any soft-deleted posts
type SubmitterHistory struct {
	PostCount      int
	ModeratedCount int
}

// ModerationPolicy decides, at verification time, whether a post is held
// for review. Implementations must be pure.
type ModerationPolicy interface {
	ShouldModerate(history SubmitterHistory) bool
}

// FirstPostOrFlaggedPolicy holds a submitter's first post, and every post
// of a submitter who already has a held post. It never clears an email on
// its own; that takes a moderator.
type FirstPostOrFlaggedPolicy struct{}

func (FirstPostOrFlaggedPolicy) ShouldModerate(history SubmitterHistory) bool {
	if history.PostCount <= 1 {
		return true
	}
	return history.ModeratedCount > 0
}
