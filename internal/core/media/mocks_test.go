package media

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"

	"Curbside/internal/core/capability"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, asset *Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Asset), args.Error(1)
}

func (m *MockRepository) GetByObjectKey(ctx context.Context, key string) (*Asset, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Asset), args.Error(1)
}

func (m *MockRepository) AssignByToken(ctx context.Context, token capability.Token[Assignment], postID int64, name string, public bool) (*Asset, error) {
	args := m.Called(ctx, token, postID, name, public)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Asset), args.Error(1)
}

func (m *MockRepository) ListByPost(ctx context.Context, postID int64) ([]*Asset, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Asset), args.Error(1)
}

func (m *MockRepository) ListByPosts(ctx context.Context, postIDs []int64) (map[int64][]*Asset, error) {
	args := m.Called(ctx, postIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]*Asset), args.Error(1)
}

func (m *MockRepository) SetVisibility(ctx context.Context, postID int64, public bool) (int64, error) {
	args := m.Called(ctx, postID, public)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Rename(ctx context.Context, id int64, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ListOrphans(ctx context.Context, cutoff time.Time, limit int) ([]*Asset, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Asset), args.Error(1)
}

func (m *MockRepository) DeleteOrphan(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockObjectStore is a mock implementation of ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	args := m.Called(ctx, key, contentType, body, size)
	return args.Error(0)
}

func (m *MockObjectStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (*url.URL, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}
