package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindOrCreate(ctx context.Context, email, secret string) (*User, error) {
	args := m.Called(ctx, email, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func TestIsBanned_UnknownEmailIsNotBanned(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByEmail", mock.Anything, "new@x.com").Return(nil, ErrUserNotFound)

	service := NewUserService(mockRepo)
	banned, err := service.IsBanned(context.Background(), "  New@X.com ")

	require.NoError(t, err)
	assert.False(t, banned)
	mockRepo.AssertExpectations(t)
}

func TestIsBanned_BannedUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByEmail", mock.Anything, "spam@x.com").
		Return(&User{Email: "spam@x.com", Banned: true}, nil)

	service := NewUserService(mockRepo)
	banned, err := service.IsBanned(context.Background(), "spam@x.com")

	require.NoError(t, err)
	assert.True(t, banned)
}

func TestIsBanned_RepositoryFailureIsSurfaced(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("connection refused"))

	service := NewUserService(mockRepo)
	_, err := service.IsBanned(context.Background(), "a@x.com")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetUserByEmail_EmptyEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)

	service := NewUserService(mockRepo)
	_, err := service.GetUserByEmail(context.Background(), "   ")

	var invalid *InvalidEmailError
	assert.ErrorAs(t, err, &invalid)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestProvision_NormalizesAndGeneratesSecret(t *testing.T) {
	mockRepo := new(MockUserRepository)
	existing := &User{Email: "a@x.com", Secret: "old", CreatedAt: time.Now()}

	mockRepo.On("FindOrCreate", mock.Anything, "a@x.com", mock.MatchedBy(func(s string) bool {
		return len(s) == secretBytes*2
	})).Return(existing, nil)

	user, err := Provision(context.Background(), mockRepo, " A@x.com")
	require.NoError(t, err)
	assert.Equal(t, "old", user.Secret, "existing users keep their secret")
	mockRepo.AssertExpectations(t)
}

func TestNewSecret_IsRandom(t *testing.T) {
	a, err := NewSecret()
	require.NoError(t, err)
	b, err := NewSecret()
	require.NoError(t, err)

	assert.Len(t, a, secretBytes*2)
	assert.NotEqual(t, a, b)
}
