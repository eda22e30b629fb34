package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"Curbside/internal/core/media"
	"Curbside/internal/core/posts"
	"Curbside/internal/core/users"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements posts.Store over PostgreSQL
type Store struct {
	db *sql.DB
}

var _ posts.Store = (*Store)(nil)

// NewStore creates a store over db
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Posts() posts.Repository { return &postgresPostRepo{q: s.db} }
func (s *Store) Media() media.Repository { return &postgresMediaRepo{q: s.db} }
func (s *Store) Users() users.UserRepository { return &postgresUserRepo{q: s.db} }

// WithTx runs fn in one transaction. The *ForUpdate lookups lock rows until
// it commits or rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(r posts.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			slog.Error("failed to rollback transaction", slog.String("error", rollbackErr.Error()))
		}
	}()

	if err := fn(txRepositories{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepositories struct {
	tx *sql.Tx
}

func (r txRepositories) Posts() posts.Repository { return &postgresPostRepo{q: r.tx} }
func (r txRepositories) Media() media.Repository { return &postgresMediaRepo{q: r.tx} }
func (r txRepositories) Users() users.UserRepository { return &postgresUserRepo{q: r.tx} }
