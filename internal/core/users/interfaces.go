package users

import "context"

// UserRepository defines the interface for user data persistence
type UserRepository interface {
	// FindOrCreate upserts the user keyed by email.
	// secret is only used when the row does not exist yet; an existing user
	// keeps its secret so previously issued credentials stay valid.
	FindOrCreate(ctx context.Context, email, secret string) (*User, error)

	GetByEmail(ctx context.Context, email string) (*User, error)
}

// BanRegistry answers whether an email may submit posts.
type BanRegistry interface {
	IsBanned(ctx context.Context, email string) (bool, error)
}

// UserService defines the interface for user business logic
type UserService interface {
	BanRegistry

	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
