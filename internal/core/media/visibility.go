package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Curbside/internal/core/capability"
	"Curbside/internal/metrics"
)

// VisibilityManager keeps a post's media in step with the post.
// Construct it over a transaction-bound Repository so that every change it
// makes commits or rolls back together with the post change that caused it.
// Changes are only counted in metrics once RecordChanges is called after
// commit.
type VisibilityManager struct {
	repo    Repository
	pending map[bool]int64
}

// NewVisibilityManager creates a manager over repo
func NewVisibilityManager(repo Repository) *VisibilityManager {
	return &VisibilityManager{repo: repo, pending: make(map[bool]int64)}
}

// RecordChanges counts the visibility changes made so far and resets them.
// Call it only once the transaction has committed. Safe on a nil manager.
func (m *VisibilityManager) RecordChanges() {
	if m == nil {
		return
	}
	for public, n := range m.pending {
		if n > 0 {
			metrics.MediaVisibilityChanges.WithLabelValues(visibilityLabel(public)).Add(float64(n))
		}
	}
	clear(m.pending)
}

// Publicize marks every asset owned by postID as public. Idempotent.
func (m *VisibilityManager) Publicize(ctx context.Context, postID int64) error {
	return m.setVisibility(ctx, postID, true)
}

// Privatize marks every asset owned by postID as private. Idempotent.
func (m *VisibilityManager) Privatize(ctx context.Context, postID int64) error {
	return m.setVisibility(ctx, postID, false)
}

func (m *VisibilityManager) setVisibility(ctx context.Context, postID int64, public bool) error {
	changed, err := m.repo.SetVisibility(ctx, postID, public)
	if err != nil {
		return fmt.Errorf("failed to set media visibility for post %d: %w", postID, err)
	}
	m.pending[public] += changed
	return nil
}

// Assign binds the upload identified by rawToken to postID. public must be
// the owning post's current visibility so a fresh asset never leaks ahead
// of, or lags behind, its post.
func (m *VisibilityManager) Assign(ctx context.Context, rawToken string, postID int64, name string, public bool) (*Asset, error) {
	token, err := capability.Parse[Assignment](strings.TrimSpace(rawToken))
	if err != nil {
		return nil, ErrNotFound
	}

	asset, err := m.repo.AssignByToken(ctx, token, postID, clampName(name), public)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to assign media to post %d: %w", postID, err)
	}
	if public {
		m.pending[true]++
	}
	return asset, nil
}

// AssignAll assigns every submitted entry carrying a token.
func (m *VisibilityManager) AssignAll(ctx context.Context, postID int64, submitted []Submitted, public bool) error {
	for _, s := range submitted {
		if s.GUID == "" {
			continue
		}
		if _, err := m.Assign(ctx, s.GUID, postID, s.Name, public); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile applies an edited media list to postID:
//   - owned assets absent from submitted are deleted
//   - owned assets present by id are renamed
//   - entries with a token are newly assigned
//
// It returns the object keys of deleted assets so the caller can remove the
// blobs once the transaction has committed.
func (m *VisibilityManager) Reconcile(ctx context.Context, postID int64, submitted []Submitted, public bool) ([]string, error) {
	existing, err := m.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media for post %d: %w", postID, err)
	}

	byID := make(map[int64]Submitted, len(submitted))
	for _, s := range submitted {
		if s.ID != nil {
			byID[*s.ID] = s
		}
	}

	var removed []string
	owned := make(map[int64]struct{}, len(existing))
	for _, asset := range existing {
		owned[asset.ID] = struct{}{}

		update, keep := byID[asset.ID]
		if !keep {
			if err := m.repo.Delete(ctx, asset.ID); err != nil {
				return nil, fmt.Errorf("failed to delete media %d: %w", asset.ID, err)
			}
			removed = append(removed, asset.ObjectKey)
			continue
		}

		if name := clampName(update.Name); name != asset.Name {
			if err := m.repo.Rename(ctx, asset.ID, name); err != nil {
				return nil, fmt.Errorf("failed to rename media %d: %w", asset.ID, err)
			}
		}
	}

	for _, s := range submitted {
		if s.GUID == "" {
			continue
		}
		// already owned entries may echo their token back; nothing to bind
		if s.ID != nil {
			if _, ok := owned[*s.ID]; ok {
				continue
			}
		}
		if _, err := m.Assign(ctx, s.GUID, postID, s.Name, public); err != nil {
			return nil, err
		}
	}

	return removed, nil
}

func visibilityLabel(public bool) string {
	if public {
		return "public"
	}
	return "private"
}
