package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// secretBytes is the size of the per-user credential secret
const secretBytes = 32

type userService struct {
	userRepo UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo UserRepository) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

// GetUserByEmail retrieves a user by their normalized email
func (s *userService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, &InvalidEmailError{Email: email}
	}
	return s.userRepo.GetByEmail(ctx, email)
}

// IsBanned reports whether the email belongs to a banned user.
// Emails without a user row are not banned.
func (s *userService) IsBanned(ctx context.Context, email string) (bool, error) {
	user, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ban status: %w", err)
	}
	return user.Banned, nil
}

// Provision finds or creates the user for email through repo.
// It takes the repository explicitly so callers can run it inside their own
// transaction. Repeated calls for the same email return the same user.
func Provision(ctx context.Context, repo UserRepository, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, &InvalidEmailError{Email: email}
	}

	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}

	user, err := repo.FindOrCreate(ctx, email, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}
	return user, nil
}

// NewSecret returns a random hex encoded credential secret
func NewSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate user secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
