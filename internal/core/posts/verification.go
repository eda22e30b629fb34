package posts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/media"
	"Curbside/internal/core/users"
)

// VerificationService redeems verification tokens
type VerificationService struct {
	store  Store
	policy ModerationPolicy
	issuer CredentialIssuer
	now    func() time.Time
}

// NewVerificationService creates a verification service.
// A nil policy uses FirstPostOrFlaggedPolicy.
func NewVerificationService(store Store, policy ModerationPolicy, issuer CredentialIssuer) *VerificationService {
	if policy == nil {
		policy = FirstPostOrFlaggedPolicy{}
	}
	return &VerificationService{
		store:  store,
		policy: policy,
		issuer: issuer,
		now:    time.Now,
	}
}

// Verify redeems rawToken.
// Flow (one transaction):
// 1. Parse the token; malformed tokens are not found without a store lookup
// 2. Lock the post by token; it must still be unverified
// 3. Count the submitter's history and ask the moderation policy
// 4. Mark verified (and moderated), persisted with a compare-and-set
// 5. Publicize media unless moderated
// 6. Find or create the user
//
// The credential is issued after commit.
func (v *VerificationService) Verify(ctx context.Context, rawToken string) (*VerifyPostResponse, error) {
	token, err := capability.Parse[Verification](rawToken)
	if err != nil {
		return nil, NewNotFoundError("post", "")
	}

	var (
		verified *Post
		user     *users.User
		vis      *media.VisibilityManager
	)
	err = v.store.WithTx(ctx, func(r Repositories) error {
		post, err := r.Posts().GetByTokenForUpdate(ctx, token)
		if err != nil {
			if IsNotFound(err) {
				return NewNotFoundError("post", "")
			}
			return fmt.Errorf("failed to load post for verification: %w", err)
		}

		// a redeemed token stops resolving
		if post.State() != StateUnverified {
			return NewNotFoundError("post", "")
		}

		history, err := r.Posts().CountByEmail(ctx, post.Email)
		if err != nil {
			return fmt.Errorf("failed to count posts for submitter: %w", err)
		}

		if err := post.MarkVerified(v.now()); err != nil {
			return NewNotFoundError("post", "")
		}
		if v.policy.ShouldModerate(history) {
			if err := post.MarkModerated(); err != nil {
				return err
			}
		}

		if err := r.Posts().MarkVerified(ctx, post); err != nil {
			return err
		}

		if !post.Moderated {
			vis = media.NewVisibilityManager(r.Media())
			if err := vis.Publicize(ctx, post.ID); err != nil {
				return err
			}
		}

		user, err = users.Provision(ctx, r.Users(), post.Email)
		if err != nil {
			return err
		}

		assets, err := r.Media().ListByPost(ctx, post.ID)
		if err != nil {
			return fmt.Errorf("failed to load media: %w", err)
		}
		post.Media = assets
		verified = post
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			log.Printf("[VERIFY] Lost verification race for token")
		}
		return nil, err
	}
	vis.RecordChanges()

	credential, err := v.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential: %w", err)
	}
	resp := &VerifyPostResponse{Post: verified, Token: credential}

	log.Printf("[VERIFY] Verified post %d (moderated=%t)", resp.Post.ID, resp.Post.Moderated)
	return resp, nil
}

// errIsNotFound reports whether err should surface as a generic not found
func errIsNotFound(err error) bool {
	return IsNotFound(err) || errors.Is(err, media.ErrNotFound)
}
