package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"

	"Curbside/internal/core/capability"
	"Curbside/internal/metrics"
)

const (
	// DefaultMaxUploadSize caps a single upload
	DefaultMaxUploadSize = 10 << 20

	// orphanBatch bounds how many orphans one sweep pass removes
	orphanBatch = 500

	maxNameLength = 255
)

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

type mediaService struct {
	repo          Repository
	objects       ObjectStore
	presignTTL    time.Duration
	maxUploadSize int64
	now           func() time.Time
}

// NewMediaService creates a new media service.
// presignTTL is the lifetime of URLs returned by Open.
func NewMediaService(repo Repository, objects ObjectStore, presignTTL time.Duration, maxUploadSize int64) Service {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &mediaService{
		repo:          repo,
		objects:       objects,
		presignTTL:    presignTTL,
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

func (s *mediaService) Upload(ctx context.Context, name, contentType string, body io.Reader, size int64) (*UploadResponse, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, ErrUnsupportedType
	}
	if size <= 0 {
		return nil, &ValidationError{Field: "file", Message: "file is empty"}
	}
	if size > s.maxUploadSize {
		return nil, ErrTooLarge
	}
	name = clampName(name)

	key := "media/" + uuid.NewString()
	if err := s.objects.Put(ctx, key, contentType, body, size); err != nil {
		return nil, fmt.Errorf("failed to store media object: %w", err)
	}

	asset := &Asset{
		Token:       capability.New[Assignment](),
		Name:        name,
		ContentType: contentType,
		ObjectKey:   key,
		FileSize:    size,
		Public:      false,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		// don't leave an unreachable blob behind
		if rmErr := s.objects.Remove(ctx, key); rmErr != nil {
			slog.Warn("failed to remove object after insert failure",
				slog.String("key", key),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, fmt.Errorf("failed to record media: %w", err)
	}

	return &UploadResponse{
		GUID:     asset.Token.String(),
		ID:       asset.ID,
		FileSize: asset.FileSize,
	}, nil
}

func (s *mediaService) Open(ctx context.Context, id int64) (*url.URL, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asset.Public {
		return nil, ErrNotFound
	}
	u, err := s.objects.PresignGet(ctx, asset.ObjectKey, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign media %d: %w", id, err)
	}
	return u, nil
}

func (s *mediaService) IsPublicObject(ctx context.Context, key string) (bool, error) {
	asset, err := s.repo.GetByObjectKey(ctx, key)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up media object: %w", err)
	}
	return asset.Public, nil
}

func (s *mediaService) RemoveObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.objects.Remove(ctx, key); err != nil {
			slog.Warn("failed to remove media object",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *mediaService) PurgeOrphans(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	orphans, err := s.repo.ListOrphans(ctx, cutoff, orphanBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list orphan media: %w", err)
	}

	purged := 0
	for _, asset := range orphans {
		deleted, err := s.repo.DeleteOrphan(ctx, asset.ID)
		if err != nil {
			return purged, fmt.Errorf("failed to delete orphan media %d: %w", asset.ID, err)
		}
		if !deleted {
			// assigned between list and delete
			continue
		}
		s.RemoveObjects(ctx, []string{asset.ObjectKey})
		purged++
	}

	metrics.OrphanMediaPurged.Add(float64(purged))
	return purged, nil
}

// clampName trims name and cuts it to at most maxNameLength bytes without
// splitting a grapheme cluster
func clampName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) <= maxNameLength {
		return name
	}
	g := uniseg.NewGraphemes(name)
	end := 0
	for g.Next() {
		_, to := g.Positions()
		if to > maxNameLength {
			break
		}
		end = to
	}
	return name[:end]
}
