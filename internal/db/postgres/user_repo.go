package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"Curbside/internal/core/users"
)

type postgresUserRepo struct {
	q querier
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) users.UserRepository {
	return &postgresUserRepo{q: db}
}

const userColumns = `email, secret, is_moderator, banned, created_at, updated_at`

func scanUser(row rowScanner) (*users.User, error) {
	var user users.User
	err := row.Scan(&user.Email, &user.Secret, &user.IsModerator, &user.Banned, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreate upserts by email. The no-op update makes RETURNING yield the
// existing row, secret included, when the email is already known.
func (r *postgresUserRepo) FindOrCreate(ctx context.Context, email, secret string) (*users.User, error) {
	query := `
		INSERT INTO users (email, secret)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRowContext(ctx, query, email, secret))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email
func (r *postgresUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err == sql.ErrNoRows {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}
