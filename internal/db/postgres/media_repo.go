package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/media"
)

type postgresMediaRepo struct {
	q querier
}

// NewMediaRepository creates a PostgreSQL media repository outside any transaction
func NewMediaRepository(db *sql.DB) media.Repository {
	return &postgresMediaRepo{q: db}
}

const mediaColumns = `id, guid, post_id, name, content_type, object_key, file_size, public, created_at`

func scanAsset(row rowScanner) (*media.Asset, error) {
	var (
		asset  media.Asset
		guid   string
		postID sql.NullInt64
	)
	err := row.Scan(
		&asset.ID, &guid, &postID, &asset.Name, &asset.ContentType,
		&asset.ObjectKey, &asset.FileSize, &asset.Public, &asset.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	token, err := capability.Parse[media.Assignment](guid)
	if err != nil {
		return nil, fmt.Errorf("media %d has a malformed guid: %w", asset.ID, err)
	}
	asset.Token = token
	if postID.Valid {
		asset.PostID = &postID.Int64
	}
	return &asset, nil
}

func (r *postgresMediaRepo) Create(ctx context.Context, asset *media.Asset) error {
	query := `
		INSERT INTO media (guid, post_id, name, content_type, object_key, file_size, public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.q.QueryRowContext(ctx, query,
		asset.Token.String(), asset.PostID, asset.Name, asset.ContentType,
		asset.ObjectKey, asset.FileSize, asset.Public, asset.CreatedAt,
	).Scan(&asset.ID)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

func (r *postgresMediaRepo) GetByID(ctx context.Context, id int64) (*media.Asset, error) {
	asset, err := scanAsset(r.q.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, media.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media %d: %w", id, err)
	}
	return asset, nil
}

func (r *postgresMediaRepo) GetByObjectKey(ctx context.Context, key string) (*media.Asset, error) {
	asset, err := scanAsset(r.q.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE object_key = $1`, key))
	if err == sql.ErrNoRows {
		return nil, media.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media by object key: %w", err)
	}
	return asset, nil
}

// AssignByToken only binds while post_id is still NULL. An empty name keeps
// the upload's original file name.
func (r *postgresMediaRepo) AssignByToken(ctx context.Context, token capability.Token[media.Assignment], postID int64, name string, public bool) (*media.Asset, error) {
	query := `
		UPDATE media
		SET post_id = $2, public = $3, name = COALESCE(NULLIF($4, ''), name)
		WHERE guid = $1 AND post_id IS NULL
		RETURNING ` + mediaColumns

	asset, err := scanAsset(r.q.QueryRowContext(ctx, query, token.String(), postID, public, name))
	if err == sql.ErrNoRows {
		return nil, media.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assign media: %w", err)
	}
	return asset, nil
}

func (r *postgresMediaRepo) ListByPost(ctx context.Context, postID int64) ([]*media.Asset, error) {
	byPost, err := r.ListByPosts(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}
	return byPost[postID], nil
}

// ListByPosts batch loads media for many posts, each list ordered by id
func (r *postgresMediaRepo) ListByPosts(ctx context.Context, postIDs []int64) (map[int64][]*media.Asset, error) {
	result := make(map[int64][]*media.Asset, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE post_id = ANY($1) ORDER BY post_id, id`,
		pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		result[*asset.PostID] = append(result[*asset.PostID], asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return result, nil
}

func (r *postgresMediaRepo) SetVisibility(ctx context.Context, postID int64, public bool) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`UPDATE media SET public = $2 WHERE post_id = $1 AND public <> $2`,
		postID, public,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to set media visibility: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return changed, nil
}

func (r *postgresMediaRepo) Rename(ctx context.Context, id int64, name string) error {
	return r.execOne(ctx, `UPDATE media SET name = $2 WHERE id = $1`, id, name)
}

func (r *postgresMediaRepo) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM media WHERE id = $1`, id)
}

func (r *postgresMediaRepo) ListOrphans(ctx context.Context, cutoff time.Time, limit int) ([]*media.Asset, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE post_id IS NULL AND created_at < $1 ORDER BY id LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan media: %w", err)
	}
	defer closeRows(rows)

	var result []*media.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		result = append(result, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return result, nil
}

func (r *postgresMediaRepo) DeleteOrphan(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM media WHERE id = $1 AND post_id IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete orphan media %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresMediaRepo) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update media: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return media.ErrNotFound
	}
	return nil
}
