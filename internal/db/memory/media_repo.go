package memory

import (
	"context"
	"sort"
	"time"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/media"
)

type mediaRepo struct {
	repositories
}

func (r *mediaRepo) Create(ctx context.Context, asset *media.Asset) error {
	return r.with(ctx, func(d *dataset) error {
		asset.ID = d.nextMediaID
		d.nextMediaID++
		if asset.CreatedAt.IsZero() {
			asset.CreatedAt = r.now()
		}
		d.media[asset.ID] = copyAsset(asset)
		return nil
	})
}

func (r *mediaRepo) GetByID(ctx context.Context, id int64) (*media.Asset, error) {
	var found *media.Asset
	err := r.with(ctx, func(d *dataset) error {
		a, ok := d.media[id]
		if !ok {
			return media.ErrNotFound
		}
		found = copyAsset(a)
		return nil
	})
	return found, err
}

func (r *mediaRepo) GetByObjectKey(ctx context.Context, key string) (*media.Asset, error) {
	var found *media.Asset
	err := r.with(ctx, func(d *dataset) error {
		for _, a := range d.media {
			if a.ObjectKey == key {
				found = copyAsset(a)
				return nil
			}
		}
		return media.ErrNotFound
	})
	return found, err
}

func (r *mediaRepo) AssignByToken(ctx context.Context, token capability.Token[media.Assignment], postID int64, name string, public bool) (*media.Asset, error) {
	var assigned *media.Asset
	err := r.with(ctx, func(d *dataset) error {
		for _, a := range d.media {
			if !a.Token.Equal(token) {
				continue
			}
			if a.IsAssigned() {
				return media.ErrNotFound
			}
			id := postID
			a.PostID = &id
			a.Public = public
			if name != "" {
				a.Name = name
			}
			assigned = copyAsset(a)
			return nil
		}
		return media.ErrNotFound
	})
	return assigned, err
}

func (r *mediaRepo) ListByPost(ctx context.Context, postID int64) ([]*media.Asset, error) {
	byPost, err := r.ListByPosts(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}
	return byPost[postID], nil
}

func (r *mediaRepo) ListByPosts(ctx context.Context, postIDs []int64) (map[int64][]*media.Asset, error) {
	wanted := make(map[int64]struct{}, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = struct{}{}
	}

	byPost := make(map[int64][]*media.Asset, len(postIDs))
	err := r.with(ctx, func(d *dataset) error {
		for _, a := range d.media {
			if a.PostID == nil {
				continue
			}
			if _, ok := wanted[*a.PostID]; ok {
				byPost[*a.PostID] = append(byPost[*a.PostID], copyAsset(a))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, assets := range byPost {
		sortByID(assets)
	}
	return byPost, nil
}

func (r *mediaRepo) SetVisibility(ctx context.Context, postID int64, public bool) (int64, error) {
	var changed int64
	err := r.with(ctx, func(d *dataset) error {
		for _, a := range d.media {
			if a.PostID != nil && *a.PostID == postID && a.Public != public {
				a.Public = public
				changed++
			}
		}
		return nil
	})
	return changed, err
}

func (r *mediaRepo) Rename(ctx context.Context, id int64, name string) error {
	return r.with(ctx, func(d *dataset) error {
		a, ok := d.media[id]
		if !ok {
			return media.ErrNotFound
		}
		a.Name = name
		return nil
	})
}

func (r *mediaRepo) Delete(ctx context.Context, id int64) error {
	return r.with(ctx, func(d *dataset) error {
		if _, ok := d.media[id]; !ok {
			return media.ErrNotFound
		}
		delete(d.media, id)
		return nil
	})
}

func (r *mediaRepo) ListOrphans(ctx context.Context, cutoff time.Time, limit int) ([]*media.Asset, error) {
	var found []*media.Asset
	err := r.with(ctx, func(d *dataset) error {
		for _, a := range d.media {
			if !a.IsAssigned() && a.CreatedAt.Before(cutoff) {
				found = append(found, copyAsset(a))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByID(found)
	return page(found, 0, limit), nil
}

func (r *mediaRepo) DeleteOrphan(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.with(ctx, func(d *dataset) error {
		a, ok := d.media[id]
		if !ok || a.IsAssigned() {
			return nil
		}
		delete(d.media, id)
		deleted = true
		return nil
	})
	return deleted, err
}

func sortByID(assets []*media.Asset) {
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
}
