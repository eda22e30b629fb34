// Package memory is an in-process implementation of the post store, for
// development and tests. A transaction works on a copy of the whole dataset
// and swaps it in on commit, so a failed transaction leaves no trace.
package memory

import (
	"context"
	"sync"
	"time"

	"Curbside/internal/core/media"
	"Curbside/internal/core/posts"
	"Curbside/internal/core/users"
)

type dataset struct {
	posts       map[int64]*posts.Post
	media       map[int64]*media.Asset
	users       map[string]*users.User
	nextPostID  int64
	nextMediaID int64
}

func newDataset() *dataset {
	return &dataset{
		posts:       make(map[int64]*posts.Post),
		media:       make(map[int64]*media.Asset),
		users:       make(map[string]*users.User),
		nextPostID:  1,
		nextMediaID: 1,
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		posts:       make(map[int64]*posts.Post, len(d.posts)),
		media:       make(map[int64]*media.Asset, len(d.media)),
		users:       make(map[string]*users.User, len(d.users)),
		nextPostID:  d.nextPostID,
		nextMediaID: d.nextMediaID,
	}
	for id, p := range d.posts {
		c.posts[id] = copyPost(p)
	}
	for id, a := range d.media {
		c.media[id] = copyAsset(a)
	}
	for email, u := range d.users {
		c.users[email] = copyUser(u)
	}
	return c
}

// Store implements posts.Store. Transactions are serialized.
type Store struct {
	data *dataset
	now  func() time.Time
	mu   sync.Mutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		data: newDataset(),
		now:  time.Now,
	}
}

var _ posts.Store = (*Store)(nil)

// WithTx runs fn against a snapshot and publishes it if fn returns nil
func (s *Store) WithTx(ctx context.Context, fn func(r posts.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&repositories{store: s, tx: snapshot}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *Store) Posts() posts.Repository { return &postRepo{repositories{store: s}} }
func (s *Store) Media() media.Repository { return &mediaRepo{repositories{store: s}} }
func (s *Store) Users() users.UserRepository { return &userRepo{repositories{store: s}} }

// repositories is bound either to a transaction snapshot or, when tx is
// nil, to the live dataset under the store lock.
type repositories struct {
	store *Store
	tx    *dataset
}

func (r *repositories) Posts() posts.Repository { return &postRepo{*r} }
func (r *repositories) Media() media.Repository { return &mediaRepo{*r} }
func (r *repositories) Users() users.UserRepository { return &userRepo{*r} }

func (r repositories) with(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.data)
}

func (r repositories) now() time.Time {
	return r.store.now().UTC()
}

// copyPost copies the persisted fields only. In-memory transition state
// never survives a round trip through the store.
func copyPost(p *posts.Post) *posts.Post {
	c := &posts.Post{
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		DeletedAt:     copyTime(p.DeletedAt),
		StartTime:     copyTime(p.StartTime),
		EndTime:       copyTime(p.EndTime),
		Token:         p.Token,
		Email:         p.Email,
		Title:         p.Title,
		Description:   p.Description,
		Price:         p.Price,
		Location:      p.Location,
		RemoteIP:      p.RemoteIP,
		ID:            p.ID,
		IsGarageSale:  p.IsGarageSale,
		EmailVerified: p.EmailVerified,
		Moderated:     p.Moderated,
		Sticky:        p.Sticky,
	}
	if p.ExactLocation != nil {
		loc := *p.ExactLocation
		c.ExactLocation = &loc
	}
	return c
}

func copyAsset(a *media.Asset) *media.Asset {
	c := *a
	if a.PostID != nil {
		id := *a.PostID
		c.PostID = &id
	}
	return &c
}

func copyUser(u *users.User) *users.User {
	c := *u
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
