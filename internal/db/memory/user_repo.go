package memory

import (
	"context"

	"Curbside/internal/core/users"
)

type userRepo struct {
	repositories
}

func (r *userRepo) FindOrCreate(ctx context.Context, email, secret string) (*users.User, error) {
	var user *users.User
	err := r.with(ctx, func(d *dataset) error {
		if existing, ok := d.users[email]; ok {
			user = copyUser(existing)
			return nil
		}
		now := r.now()
		created := &users.User{
			Email:     email,
			Secret:    secret,
			CreatedAt: now,
			UpdatedAt: now,
		}
		d.users[email] = created
		user = copyUser(created)
		return nil
	})
	return user, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	var user *users.User
	err := r.with(ctx, func(d *dataset) error {
		u, ok := d.users[email]
		if !ok {
			return users.ErrUserNotFound
		}
		user = copyUser(u)
		return nil
	})
	return user, err
}

// Put stores u as is, replacing any user with the same email. It exists
// for seeding moderators and bans, which have no API.
func (s *Store) Put(u *users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.Email] = copyUser(u)
}

// SetModerated flips the moderated flag of a post directly, the way a
// moderator would in the database.
func (s *Store) SetModerated(id int64, moderated bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.posts[id]
	if ok {
		p.Moderated = moderated
	}
	return ok
}

// SetSticky pins or unpins a post
func (s *Store) SetSticky(id int64, sticky bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.posts[id]
	if ok {
		p.Sticky = sticky
	}
	return ok
}
