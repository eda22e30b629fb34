package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/posts"
)

type postgresPostRepo struct {
	q querier
}

// NewPostRepository creates a PostgreSQL post repository outside any transaction
func NewPostRepository(db *sql.DB) posts.Repository {
	return &postgresPostRepo{q: db}
}

const postColumns = `
	id, guid, email, title, description, price, location, exact_location,
	is_garage_sale, start_time, end_time, remote_ip,
	email_verified, moderated, sticky, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*posts.Post, error) {
	var (
		post          posts.Post
		guid          string
		exactLocation sql.NullString
		startTime     sql.NullTime
		endTime       sql.NullTime
		deletedAt     sql.NullTime
	)
	err := row.Scan(
		&post.ID, &guid, &post.Email, &post.Title, &post.Description, &post.Price,
		&post.Location, &exactLocation,
		&post.IsGarageSale, &startTime, &endTime, &post.RemoteIP,
		&post.EmailVerified, &post.Moderated, &post.Sticky,
		&post.CreatedAt, &post.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	token, err := capability.Parse[posts.Verification](guid)
	if err != nil {
		return nil, fmt.Errorf("post %d has a malformed guid: %w", post.ID, err)
	}
	post.Token = token

	if exactLocation.Valid {
		post.ExactLocation = &exactLocation.String
	}
	if startTime.Valid {
		post.StartTime = &startTime.Time
	}
	if endTime.Valid {
		post.EndTime = &endTime.Time
	}
	if deletedAt.Valid {
		post.DeletedAt = &deletedAt.Time
	}
	return &post, nil
}

// Create inserts an unverified post and sets its ID
func (r *postgresPostRepo) Create(ctx context.Context, post *posts.Post) error {
	query := `
		INSERT INTO posts (
			guid, email, title, description, price, location, exact_location,
			is_garage_sale, start_time, end_time, remote_ip,
			email_verified, moderated, created_at, updated_at, deleted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16
		)
		RETURNING id`

	err := r.q.QueryRowContext(ctx, query,
		post.Token.String(), post.Email, post.Title, post.Description, post.Price,
		post.Location, post.ExactLocation,
		post.IsGarageSale, post.StartTime, post.EndTime, post.RemoteIP,
		post.EmailVerified, post.Moderated, post.CreatedAt, post.UpdatedAt, post.DeletedAt,
	).Scan(&post.ID)
	if err != nil {
		if strings.Contains(err.Error(), "posts_guid_key") {
			return fmt.Errorf("post guid already exists")
		}
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (r *postgresPostRepo) getOne(ctx context.Context, where string, forUpdate bool, args ...any) (*posts.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + where
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanPost(r.q.QueryRowContext(ctx, query, args...))
}

func (r *postgresPostRepo) byID(ctx context.Context, id int64, where string, forUpdate bool) (*posts.Post, error) {
	post, err := r.getOne(ctx, where, forUpdate, id)
	if err == sql.ErrNoRows {
		return nil, posts.NewNotFoundError("post", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return post, nil
}

func (r *postgresPostRepo) GetByID(ctx context.Context, id int64) (*posts.Post, error) {
	return r.byID(ctx, id, `id = $1`, false)
}

func (r *postgresPostRepo) GetByIDForUpdate(ctx context.Context, id int64) (*posts.Post, error) {
	return r.byID(ctx, id, `id = $1`, true)
}

func (r *postgresPostRepo) GetPublic(ctx context.Context, id int64) (*posts.Post, error) {
	return r.byID(ctx, id, `id = $1 AND state = 'public'`, false)
}

func (r *postgresPostRepo) GetByTokenForUpdate(ctx context.Context, token capability.Token[posts.Verification]) (*posts.Post, error) {
	post, err := r.getOne(ctx, `guid = $1`, true, token.String())
	if err == sql.ErrNoRows {
		return nil, posts.NewNotFoundError("post", "")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by token: %w", err)
	}
	return post, nil
}

// UpdateContent persists the editable fields
func (r *postgresPostRepo) UpdateContent(ctx context.Context, post *posts.Post) error {
	query := `
		UPDATE posts SET
			title = $2, description = $3, price = $4, location = $5,
			exact_location = $6, is_garage_sale = $7, start_time = $8, end_time = $9,
			updated_at = $10
		WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query,
		post.ID, post.Title, post.Description, post.Price, post.Location,
		post.ExactLocation, post.IsGarageSale, post.StartTime, post.EndTime,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update post %d: %w", post.ID, err)
	}
	return requireRow(result, post.ID)
}

// MarkVerified only applies while the row is still unverified
func (r *postgresPostRepo) MarkVerified(ctx context.Context, post *posts.Post) error {
	query := `
		UPDATE posts
		SET email_verified = $2, moderated = $3, updated_at = $4
		WHERE id = $1 AND email_verified = FALSE`

	result, err := r.q.ExecContext(ctx, query, post.ID, post.EmailVerified, post.Moderated, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to mark post %d verified: %w", post.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return &posts.ConflictError{Resource: "post", ID: strconv.FormatInt(post.ID, 10)}
	}
	return nil
}

func (r *postgresPostRepo) UpdateDeletion(ctx context.Context, post *posts.Post) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE posts SET deleted_at = $2, updated_at = $3 WHERE id = $1`,
		post.ID, post.DeletedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update deletion of post %d: %w", post.ID, err)
	}
	return requireRow(result, post.ID)
}

// CountByEmail counts soft-deleted posts too
func (r *postgresPostRepo) CountByEmail(ctx context.Context, email string) (posts.SubmitterHistory, error) {
	var history posts.SubmitterHistory
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE moderated) FROM posts WHERE email = $1`,
		email,
	).Scan(&history.PostCount, &history.ModeratedCount)
	if err != nil {
		return history, fmt.Errorf("failed to count posts by email: %w", err)
	}
	return history, nil
}

// ListPublic builds one of the public listings. Every branch filters on
// state = 'public'.
func (r *postgresPostRepo) ListPublic(ctx context.Context, q posts.ListQuery) ([]*posts.Post, error) {
	var (
		where strings.Builder
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where.WriteString(`state = 'public'`)
	order := `created_at DESC, id DESC`

	switch q.Kind {
	case posts.ListLatest:
	case posts.ListGarage:
		where.WriteString(` AND is_garage_sale AND exact_location IS NOT NULL AND end_time > ` + arg(q.Now))
		order = `start_time ASC, id ASC`
	case posts.ListSearch:
		pattern := arg("%" + escapeLike(q.Term) + "%")
		where.WriteString(` AND (title ILIKE ` + pattern + ` OR description ILIKE ` + pattern + `)`)
	case posts.ListSticky:
		where.WriteString(` AND sticky`)
	case posts.ListMine:
		where.WriteString(` AND email = ` + arg(q.Email))
	default:
		return nil, fmt.Errorf("unknown listing %q", q.Kind)
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + where.String() +
		` ORDER BY ` + order + ` LIMIT ` + arg(q.Limit) + ` OFFSET ` + arg(q.Offset)

	return r.list(ctx, query, args...)
}

func (r *postgresPostRepo) ListAll(ctx context.Context, afterID int64, limit int) ([]*posts.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id > $1 ORDER BY id ASC LIMIT $2`
	return r.list(ctx, query, afterID, limit)
}

func (r *postgresPostRepo) list(ctx context.Context, query string, args ...any) ([]*posts.Post, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer closeRows(rows)

	var result []*posts.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return result, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", slog.String("error", err.Error()))
	}
}

func requireRow(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return posts.NewNotFoundError("post", strconv.FormatInt(id, 10))
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside an ILIKE pattern
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
