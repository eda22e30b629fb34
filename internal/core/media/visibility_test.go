package media

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Curbside/internal/core/capability"
	"Curbside/internal/metrics"
)

func int64Ptr(v int64) *int64 { return &v }

func TestVisibilityManager_PublicizeAndPrivatize(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("SetVisibility", ctx, int64(3), true).Return(int64(2), nil)
	repo.On("SetVisibility", ctx, int64(3), false).Return(int64(0), nil)

	m := NewVisibilityManager(repo)
	require.NoError(t, m.Publicize(ctx, 3))
	require.NoError(t, m.Privatize(ctx, 3))
	repo.AssertExpectations(t)
}

func TestVisibilityManager_SetVisibilityError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("SetVisibility", ctx, int64(3), true).Return(int64(0), errors.New("db down"))

	err := NewVisibilityManager(repo).Publicize(ctx, 3)
	assert.ErrorContains(t, err, "db down")
}

func TestVisibilityManager_AssignMalformedTokenSkipsStore(t *testing.T) {
	repo := new(MockRepository)

	_, err := NewVisibilityManager(repo).Assign(context.Background(), "not-a-token", 1, "", false)
	assert.ErrorIs(t, err, ErrNotFound)
	repo.AssertNotCalled(t, "AssignByToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVisibilityManager_AssignPassesVisibility(t *testing.T) {
	ctx := context.Background()
	token := capability.New[Assignment]()
	repo := new(MockRepository)
	repo.On("AssignByToken", ctx, token, int64(9), "front", true).
		Return(&Asset{ID: 1, PostID: int64Ptr(9), Public: true}, nil)

	asset, err := NewVisibilityManager(repo).Assign(ctx, " "+token.String()+" ", 9, " front ", true)
	require.NoError(t, err)
	assert.True(t, asset.Public)
	repo.AssertExpectations(t)
}

func TestVisibilityManager_Reconcile(t *testing.T) {
	ctx := context.Background()
	fresh := capability.New[Assignment]()
	repo := new(MockRepository)
	repo.On("ListByPost", ctx, int64(5)).Return([]*Asset{
		{ID: 1, Name: "front", ObjectKey: "media/1"},
		{ID: 2, Name: "back", ObjectKey: "media/2"},
		{ID: 3, Name: "side", ObjectKey: "media/3"},
	}, nil)
	repo.On("Delete", ctx, int64(2)).Return(nil)
	repo.On("Rename", ctx, int64(3), "left side").Return(nil)
	repo.On("AssignByToken", ctx, fresh, int64(5), "new", false).Return(&Asset{ID: 4}, nil)

	removed, err := NewVisibilityManager(repo).Reconcile(ctx, 5, []Submitted{
		{ID: int64Ptr(1), Name: "front"},
		{ID: int64Ptr(3), Name: "left side", GUID: capability.New[Assignment]().String()},
		{GUID: fresh.String(), Name: "new"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"media/2"}, removed)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Rename", ctx, int64(1), mock.Anything)
}

func TestVisibilityManager_ReconcileAssignFailure(t *testing.T) {
	ctx := context.Background()
	fresh := capability.New[Assignment]()
	repo := new(MockRepository)
	repo.On("ListByPost", ctx, int64(5)).Return([]*Asset{}, nil)
	repo.On("AssignByToken", ctx, fresh, int64(5), "", true).Return(nil, ErrNotFound)

	_, err := NewVisibilityManager(repo).Reconcile(ctx, 5, []Submitted{{GUID: fresh.String()}}, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVisibilityManager_RecordChangesAfterCommitOnly(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("SetVisibility", ctx, int64(4), true).Return(int64(3), nil)
	repo.On("SetVisibility", ctx, int64(4), false).Return(int64(1), nil)
	public := metrics.MediaVisibilityChanges.WithLabelValues("public")
	private := metrics.MediaVisibilityChanges.WithLabelValues("private")
	beforePublic, beforePrivate := testutil.ToFloat64(public), testutil.ToFloat64(private)

	m := NewVisibilityManager(repo)
	require.NoError(t, m.Publicize(ctx, 4))
	require.NoError(t, m.Privatize(ctx, 4))
	assert.Equal(t, beforePublic, testutil.ToFloat64(public))

	m.RecordChanges()
	assert.Equal(t, beforePublic+3, testutil.ToFloat64(public))
	assert.Equal(t, beforePrivate+1, testutil.ToFloat64(private))

	// already recorded changes are not counted twice
	m.RecordChanges()
	assert.Equal(t, beforePublic+3, testutil.ToFloat64(public))

	var none *VisibilityManager
	assert.NotPanics(t, none.RecordChanges)
}
