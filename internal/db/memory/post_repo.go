package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/posts"
)

type postRepo struct {
	repositories
}

func notFound(id int64) error {
	return posts.NewNotFoundError("post", strconv.FormatInt(id, 10))
}

func (r *postRepo) Create(ctx context.Context, post *posts.Post) error {
	return r.with(ctx, func(d *dataset) error {
		post.ID = d.nextPostID
		d.nextPostID++
		if post.CreatedAt.IsZero() {
			post.CreatedAt = r.now()
		}
		if post.UpdatedAt.IsZero() {
			post.UpdatedAt = post.CreatedAt
		}
		d.posts[post.ID] = copyPost(post)
		return nil
	})
}

func (r *postRepo) GetByID(ctx context.Context, id int64) (*posts.Post, error) {
	var found *posts.Post
	err := r.with(ctx, func(d *dataset) error {
		p, ok := d.posts[id]
		if !ok {
			return notFound(id)
		}
		found = copyPost(p)
		return nil
	})
	return found, err
}

// GetByIDForUpdate is GetByID: transactions already run one at a time
func (r *postRepo) GetByIDForUpdate(ctx context.Context, id int64) (*posts.Post, error) {
	return r.GetByID(ctx, id)
}

func (r *postRepo) GetByTokenForUpdate(ctx context.Context, token capability.Token[posts.Verification]) (*posts.Post, error) {
	var found *posts.Post
	err := r.with(ctx, func(d *dataset) error {
		for _, p := range d.posts {
			if p.Token.Equal(token) {
				found = copyPost(p)
				return nil
			}
		}
		return posts.NewNotFoundError("post", "")
	})
	return found, err
}

func (r *postRepo) UpdateContent(ctx context.Context, post *posts.Post) error {
	return r.with(ctx, func(d *dataset) error {
		stored, ok := d.posts[post.ID]
		if !ok {
			return notFound(post.ID)
		}
		c := copyPost(post)
		stored.Title = c.Title
		stored.Description = c.Description
		stored.Price = c.Price
		stored.Location = c.Location
		stored.ExactLocation = c.ExactLocation
		stored.IsGarageSale = c.IsGarageSale
		stored.StartTime = c.StartTime
		stored.EndTime = c.EndTime
		stored.UpdatedAt = c.UpdatedAt
		return nil
	})
}

func (r *postRepo) MarkVerified(ctx context.Context, post *posts.Post) error {
	return r.with(ctx, func(d *dataset) error {
		stored, ok := d.posts[post.ID]
		if !ok || stored.EmailVerified {
			return &posts.ConflictError{Resource: "post", ID: strconv.FormatInt(post.ID, 10)}
		}
		stored.EmailVerified = post.EmailVerified
		stored.Moderated = post.Moderated
		stored.UpdatedAt = post.UpdatedAt
		return nil
	})
}

func (r *postRepo) UpdateDeletion(ctx context.Context, post *posts.Post) error {
	return r.with(ctx, func(d *dataset) error {
		stored, ok := d.posts[post.ID]
		if !ok {
			return notFound(post.ID)
		}
		stored.DeletedAt = copyTime(post.DeletedAt)
		stored.UpdatedAt = post.UpdatedAt
		return nil
	})
}

func (r *postRepo) CountByEmail(ctx context.Context, email string) (posts.SubmitterHistory, error) {
	var history posts.SubmitterHistory
	err := r.with(ctx, func(d *dataset) error {
		for _, p := range d.posts {
			if p.Email != email {
				continue
			}
			history.PostCount++
			if p.Moderated {
				history.ModeratedCount++
			}
		}
		return nil
	})
	return history, err
}

func (r *postRepo) ListPublic(ctx context.Context, q posts.ListQuery) ([]*posts.Post, error) {
	var found []*posts.Post
	err := r.with(ctx, func(d *dataset) error {
		term := strings.ToLower(q.Term)
		for _, p := range d.posts {
			if p.State() != posts.StatePublic {
				continue
			}
			switch q.Kind {
			case posts.ListGarage:
				if !p.IsGarageSale || p.ExactLocation == nil || p.EndTime == nil || !p.EndTime.After(q.Now) {
					continue
				}
			case posts.ListSearch:
				if !strings.Contains(strings.ToLower(p.Title), term) &&
					!strings.Contains(strings.ToLower(p.Description), term) {
					continue
				}
			case posts.ListSticky:
				if !p.Sticky {
					continue
				}
			case posts.ListMine:
				if p.Email != q.Email {
					continue
				}
			}
			found = append(found, copyPost(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if q.Kind == posts.ListGarage {
		sort.Slice(found, func(i, j int) bool {
			si, sj := startOf(found[i]), startOf(found[j])
			if !si.Equal(sj) {
				return si.Before(sj)
			}
			return found[i].ID < found[j].ID
		})
	} else {
		sort.Slice(found, func(i, j int) bool {
			if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
				return found[i].CreatedAt.After(found[j].CreatedAt)
			}
			return found[i].ID > found[j].ID
		})
	}

	return page(found, q.Offset, q.Limit), nil
}

func (r *postRepo) GetPublic(ctx context.Context, id int64) (*posts.Post, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic() {
		return nil, notFound(id)
	}
	return p, nil
}

func (r *postRepo) ListAll(ctx context.Context, afterID int64, limit int) ([]*posts.Post, error) {
	var found []*posts.Post
	err := r.with(ctx, func(d *dataset) error {
		for id, p := range d.posts {
			if id > afterID {
				found = append(found, copyPost(p))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return page(found, 0, limit), nil
}

func startOf(p *posts.Post) time.Time {
	if p.StartTime != nil {
		return *p.StartTime
	}
	return time.Time{}
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
