package posts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"Curbside/internal/core/captcha"
	"Curbside/internal/core/mail"
	"Curbside/internal/core/media"
	"Curbside/internal/core/users"
	"Curbside/internal/metrics"
)

const (
	// PageSize is the number of posts in a paged listing
	PageSize = 50

	// maxUnpagedList bounds listings that the API does not page
	maxUnpagedList = 500

	defaultMailTimeout = 5 * time.Second
)

// Config holds the tunables of the lifecycle service
type Config struct {
	// CaptchaAction is the action the anti-abuse proof must carry
	CaptchaAction string
	// CaptchaThreshold is the score a proof must exceed
	CaptchaThreshold float64
	// VerifyURLBase is prefixed to the token in the verification mail
	VerifyURLBase string
	MailTimeout   time.Duration
}

type postService struct {
	store    Store
	verifier captcha.Verifier
	bans     users.BanRegistry
	mailer   mail.Sender
	blobs    BlobRemover
	verify   *VerificationService
	now      func() time.Time
	cfg      Config
}

// NewPostService creates the post lifecycle service.
// blobs can be nil if media blobs are not stored (e.g., in tests).
func NewPostService(
	store Store,
	verifier captcha.Verifier,
	bans users.BanRegistry,
	mailer mail.Sender,
	issuer CredentialIssuer,
	blobs BlobRemover, // Optional: can be nil
	policy ModerationPolicy, // Optional: nil uses FirstPostOrFlaggedPolicy
	cfg Config,
) Service {
	if cfg.CaptchaAction == "" {
		cfg.CaptchaAction = "post"
	}
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = defaultMailTimeout
	}
	return &postService{
		store:    store,
		verifier: verifier,
		bans:     bans,
		mailer:   mailer,
		blobs:    blobs,
		verify:   NewVerificationService(store, policy, issuer),
		now:      time.Now,
		cfg:      cfg,
	}
}

// CreatePost creates a new unverified post
// Flow:
// 1. Check the anti-abuse proof
// 2. Validate content and email
// 3. Drop banned submitters with a generic rejection
// 4. Insert the post and assign its media in one transaction
// 5. Send the verification mail; a mail failure does not undo the post
func (s *postService) CreatePost(ctx context.Context, req CreatePostRequest) (post *Post, err error) {
	defer func() { observe("create", err) }()

	result, err := s.verifier.Verify(ctx, req.CaptchaToken, req.RemoteIP)
	if err != nil {
		log.Printf("[POST-CREATE] Captcha verification failed: %v", err)
		return nil, ErrRejected
	}
	if !result.Passes(s.cfg.CaptchaAction, s.cfg.CaptchaThreshold) {
		log.Printf("[POST-CREATE] Captcha rejected (action=%q score=%.2f)", result.Action, result.Score)
		return nil, ErrRejected
	}

	post, err = NewPost(req.Content, req.Email, req.RemoteIP, s.now())
	if err != nil {
		log.Printf("[POST-CREATE] New post validation failed")
		return nil, err
	}

	banned, err := s.bans.IsBanned(ctx, post.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check ban list: %w", err)
	}
	if banned {
		log.Printf("[POST-CREATE] Skipping post creation for banned user: %s", post.Email)
		return nil, ErrRejected
	}

	var vis *media.VisibilityManager
	err = s.store.WithTx(ctx, func(r Repositories) error {
		if err := r.Posts().Create(ctx, post); err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		vis = media.NewVisibilityManager(r.Media())
		if err := vis.AssignAll(ctx, post.ID, req.Media, false); err != nil {
			return mapMediaErr(err)
		}
		assets, err := r.Media().ListByPost(ctx, post.ID)
		if err != nil {
			return fmt.Errorf("failed to load media: %w", err)
		}
		post.Media = assets
		return nil
	})
	if err != nil {
		return nil, err
	}
	vis.RecordChanges()

	s.sendVerification(ctx, post)
	log.Printf("[POST-CREATE] New post %d saved, verification sent to %s", post.ID, post.Email)
	return post, nil
}

func (s *postService) sendVerification(ctx context.Context, post *Post) {
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.MailTimeout)
	defer cancel()

	err := s.mailer.SendPostVerification(mailCtx, mail.VerificationMessage{
		To:        post.Email,
		Title:     post.Title,
		VerifyURL: s.cfg.VerifyURLBase + post.Token.String(),
		PostID:    post.ID,
	})
	if err != nil {
		metrics.MailFailures.Inc()
		log.Printf("[POST-CREATE] Failed to send verification mail for post %d: %v", post.ID, err)
	}
}

// VerifyPost redeems a verification token
func (s *postService) VerifyPost(ctx context.Context, token string) (resp *VerifyPostResponse, err error) {
	defer func() { observe("verify", err) }()
	return s.verify.Verify(ctx, token)
}

// UpdatePost replaces content and reconciles media for the owner
func (s *postService) UpdatePost(ctx context.Context, requester Requester, req UpdatePostRequest) (updated *Post, err error) {
	defer func() { observe("update", err) }()

	var (
		removed []string
		vis     *media.VisibilityManager
	)
	err = s.store.WithTx(ctx, func(r Repositories) error {
		post, err := s.lockOwned(ctx, r, requester, req.ID, false)
		if err != nil {
			return err
		}

		if err := post.UpdateContent(req.Content, s.now()); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				return ErrNotAuthorized
			}
			return err
		}
		if err := r.Posts().UpdateContent(ctx, post); err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		vis = media.NewVisibilityManager(r.Media())
		removed, err = vis.Reconcile(ctx, post.ID, req.Media, post.IsPublic())
		if err != nil {
			return mapMediaErr(err)
		}

		assets, err := r.Media().ListByPost(ctx, post.ID)
		if err != nil {
			return fmt.Errorf("failed to load media: %w", err)
		}
		post.Media = assets
		updated = post
		return nil
	})
	if err != nil {
		log.Printf("[POST-UPDATE] Error updating post with id %d: %v", req.ID, err)
		return nil, err
	}
	vis.RecordChanges()

	if s.blobs != nil && len(removed) > 0 {
		s.blobs.RemoveObjects(ctx, removed)
	}
	log.Printf("[POST-UPDATE] Updated post with id %d", req.ID)
	return updated, nil
}

// DeletePost soft-deletes a post. Owners and moderators may delete.
func (s *postService) DeletePost(ctx context.Context, requester Requester, id int64) (err error) {
	defer func() { observe("delete", err) }()

	var vis *media.VisibilityManager
	err = s.store.WithTx(ctx, func(r Repositories) error {
		post, err := s.lockOwned(ctx, r, requester, id, true)
		if err != nil {
			return err
		}
		if err := post.SoftDelete(s.now()); err != nil {
			return ErrNotAuthorized
		}
		if err := r.Posts().UpdateDeletion(ctx, post); err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		vis = media.NewVisibilityManager(r.Media())
		return vis.Privatize(ctx, post.ID)
	})
	if err != nil {
		log.Printf("[POST-DELETE] Error deleting post with id %d: %v", id, err)
		return err
	}
	vis.RecordChanges()

	log.Printf("[POST-DELETE] Deleted post with id %d", id)
	return nil
}

// RestorePost undoes a soft delete for the owner. The post returns to the
// state its flags describe, so a held post stays held and keeps its media
// private.
func (s *postService) RestorePost(ctx context.Context, requester Requester, id int64) (err error) {
	defer func() { observe("restore", err) }()

	var vis *media.VisibilityManager
	err = s.store.WithTx(ctx, func(r Repositories) error {
		post, err := s.lockOwned(ctx, r, requester, id, false)
		if err != nil {
			return err
		}
		if err := post.Restore(s.now()); err != nil {
			return ErrNotAuthorized
		}
		if err := r.Posts().UpdateDeletion(ctx, post); err != nil {
			return fmt.Errorf("failed to restore post: %w", err)
		}
		if post.IsPublic() {
			vis = media.NewVisibilityManager(r.Media())
			return vis.Publicize(ctx, post.ID)
		}
		return nil
	})
	if err != nil {
		log.Printf("[POST-RESTORE] Error undeleting post with id %d: %v", id, err)
		return err
	}
	vis.RecordChanges()

	log.Printf("[POST-RESTORE] Undeleted post with id %d", id)
	return nil
}

// lockOwned loads and locks the post and applies the owner guard. Every
// failure collapses to ErrNotAuthorized except infrastructure errors.
func (s *postService) lockOwned(ctx context.Context, r Repositories, requester Requester, id int64, allowModerator bool) (*Post, error) {
	post, err := r.Posts().GetByIDForUpdate(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotAuthorized
		}
		return nil, fmt.Errorf("failed to load post %d: %w", id, err)
	}
	if requester.owns(post) {
		return post, nil
	}
	if allowModerator && requester.IsModerator {
		return post, nil
	}
	return nil, ErrNotAuthorized
}

// GetPost returns one public post with its full description
func (s *postService) GetPost(ctx context.Context, id int64) (*PostView, error) {
	post, err := s.store.Posts().GetPublic(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewNotFoundError("post", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	views, err := s.viewsOf(ctx, []*Post{post}, false)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// GetOwnPost returns the requester's post in any state
func (s *postService) GetOwnPost(ctx context.Context, requester Requester, id int64) (*Post, error) {
	post, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotAuthorized
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if !requester.owns(post) {
		return nil, ErrNotAuthorized
	}
	assets, err := s.store.Media().ListByPost(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load media: %w", err)
	}
	post.Media = assets
	return post, nil
}

// ListPosts returns one of the public listings
func (s *postService) ListPosts(ctx context.Context, req ListRequest) ([]*PostView, error) {
	q := ListQuery{
		Kind:   req.Kind,
		Now:    s.now().UTC(),
		Offset: req.Offset,
		Limit:  maxUnpagedList,
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	switch req.Kind {
	case ListLatest:
		q.Limit = PageSize
	case ListSearch:
		q.Term = strings.TrimSpace(req.Term)
		if q.Term == "" {
			return nil, NewValidationError("term", "is required")
		}
		q.Limit = PageSize
	case ListMine:
		q.Email = normalizeEmail(req.Email)
		if q.Email == "" {
			return nil, ErrNotAuthorized
		}
		q.Offset = 0
	case ListGarage, ListSticky:
		q.Offset = 0
	default:
		return nil, NewValidationError("kind", fmt.Sprintf("unknown listing %q", req.Kind))
	}

	found, err := s.store.Posts().ListPublic(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return s.viewsOf(ctx, found, true)
}

func (s *postService) viewsOf(ctx context.Context, found []*Post, trim bool) ([]*PostView, error) {
	views := make([]*PostView, 0, len(found))
	if len(found) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(found))
	for _, p := range found {
		ids = append(ids, p.ID)
	}
	byPost, err := s.store.Media().ListByPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load media: %w", err)
	}

	for _, p := range found {
		views = append(views, NewPostView(p, byPost[p.ID], trim))
	}
	return views, nil
}

func mapMediaErr(err error) error {
	if errors.Is(err, media.ErrNotFound) {
		return NewNotFoundError("media", "")
	}
	return err
}

// observe records the outcome of a lifecycle operation
func observe(transition string, err error) {
	switch {
	case err == nil:
		metrics.Transition(transition, metrics.OutcomeOK)
	case errIsNotFound(err), IsValidationError(err),
		errors.Is(err, ErrNotAuthorized), errors.Is(err, ErrRejected):
		metrics.Transition(transition, metrics.OutcomeRejected)
	default:
		metrics.Transition(transition, metrics.OutcomeError)
	}
}
