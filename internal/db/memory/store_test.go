package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Curbside/internal/core/capability"
	"Curbside/internal/core/media"
	"Curbside/internal/core/posts"
	"Curbside/internal/core/users"
)

func newPost(t *testing.T, email string) *posts.Post {
	t.Helper()
	p, err := posts.NewPost(posts.Content{
		Title:       "Bike",
		Description: "Red bike",
		Price:       "$20",
		Location:    "Downtown",
	}, email, "127.0.0.1", time.Now())
	require.NoError(t, err)
	return p
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(r posts.Repositories) error {
		require.NoError(t, r.Posts().Create(ctx, newPost(t, "a@x.com")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Posts().GetByID(ctx, 1)
	assert.True(t, posts.IsNotFound(err))
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	post := newPost(t, "a@x.com")

	err := store.WithTx(ctx, func(r posts.Repositories) error {
		return r.Posts().Create(ctx, post)
	})
	require.NoError(t, err)

	got, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, posts.StateUnverified, got.State())
}

func TestPostRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	post := newPost(t, "a@x.com")
	require.NoError(t, store.Posts().Create(ctx, post))

	got, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	got.Title = "changed"

	again, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bike", again.Title)
}

func TestPostRepo_MarkVerifiedIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	post := newPost(t, "a@x.com")
	require.NoError(t, store.Posts().Create(ctx, post))

	first, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	second, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)

	require.NoError(t, first.MarkVerified(time.Now()))
	require.NoError(t, second.MarkVerified(time.Now()))

	require.NoError(t, store.Posts().MarkVerified(ctx, first))
	err = store.Posts().MarkVerified(ctx, second)
	assert.True(t, posts.IsConflict(err))
	assert.True(t, posts.IsNotFound(err))
}

func TestPostRepo_LoadedPostCannotBeModeratedLater(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	post := newPost(t, "a@x.com")
	require.NoError(t, post.MarkVerified(time.Now()))
	require.NoError(t, store.Posts().Create(ctx, post))

	loaded, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, loaded.MarkModerated(), posts.ErrInvalidTransition)
}

func TestPostRepo_CountByEmailIncludesDeleted(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	held := newPost(t, "a@x.com")
	require.NoError(t, held.MarkVerified(time.Now()))
	require.NoError(t, held.MarkModerated())
	require.NoError(t, held.SoftDelete(time.Now()))
	require.NoError(t, store.Posts().Create(ctx, held))
	require.NoError(t, store.Posts().Create(ctx, newPost(t, "a@x.com")))
	require.NoError(t, store.Posts().Create(ctx, newPost(t, "b@x.com")))

	history, err := store.Posts().CountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, posts.SubmitterHistory{PostCount: 2, ModeratedCount: 1}, history)
}

func TestMediaRepo_AssignByTokenOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	token := capability.New[media.Assignment]()
	asset := &media.Asset{Token: token, Name: "upload.jpg", ObjectKey: "media/1"}
	require.NoError(t, store.Media().Create(ctx, asset))

	assigned, err := store.Media().AssignByToken(ctx, token, 7, "front", true)
	require.NoError(t, err)
	require.NotNil(t, assigned.PostID)
	assert.Equal(t, int64(7), *assigned.PostID)
	assert.Equal(t, "front", assigned.Name)
	assert.True(t, assigned.Public)

	_, err = store.Media().AssignByToken(ctx, token, 8, "", false)
	assert.ErrorIs(t, err, media.ErrNotFound)

	_, err = store.Media().AssignByToken(ctx, capability.New[media.Assignment](), 8, "", false)
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestMediaRepo_SetVisibilityCountsChanges(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for i := 0; i < 2; i++ {
		token := capability.New[media.Assignment]()
		require.NoError(t, store.Media().Create(ctx, &media.Asset{Token: token}))
		_, err := store.Media().AssignByToken(ctx, token, 1, "", false)
		require.NoError(t, err)
	}

	changed, err := store.Media().SetVisibility(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = store.Media().SetVisibility(ctx, 1, true)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestMediaRepo_Orphans(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	old := time.Now().Add(-48 * time.Hour)

	orphan := &media.Asset{Token: capability.New[media.Assignment](), CreatedAt: old}
	require.NoError(t, store.Media().Create(ctx, orphan))
	owned := &media.Asset{Token: capability.New[media.Assignment](), CreatedAt: old}
	require.NoError(t, store.Media().Create(ctx, owned))
	_, err := store.Media().AssignByToken(ctx, owned.Token, 1, "", false)
	require.NoError(t, err)
	require.NoError(t, store.Media().Create(ctx, &media.Asset{Token: capability.New[media.Assignment]()}))

	found, err := store.Media().ListOrphans(ctx, time.Now().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, orphan.ID, found[0].ID)

	deleted, err := store.Media().DeleteOrphan(ctx, owned.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.Media().DeleteOrphan(ctx, orphan.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestUserRepo_FindOrCreateKeepsSecret(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first, err := store.Users().FindOrCreate(ctx, "a@x.com", "s1")
	require.NoError(t, err)
	second, err := store.Users().FindOrCreate(ctx, "a@x.com", "s2")
	require.NoError(t, err)

	assert.Equal(t, "s1", first.Secret)
	assert.Equal(t, "s1", second.Secret)

	_, err = store.Users().GetByEmail(ctx, "b@x.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestListPublic_GarageSales(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now().UTC()
	where := "12 Elm St"

	garage := func(start, end time.Time, exact *string) *posts.Post {
		p, err := posts.NewPost(posts.Content{
			Title: "Sale", Description: "Stuff", Price: "free", Location: "North",
			IsGarageSale: true, StartTime: &start, EndTime: &end, ExactLocation: exact,
		}, "a@x.com", "", now)
		require.NoError(t, err)
		require.NoError(t, p.MarkVerified(now))
		require.NoError(t, store.Posts().Create(ctx, p))
		return p
	}

	later := garage(now.Add(48*time.Hour), now.Add(50*time.Hour), &where)
	sooner := garage(now.Add(time.Hour), now.Add(3*time.Hour), &where)
	garage(now.Add(-3*time.Hour), now.Add(-time.Hour), &where)
	garage(now.Add(time.Hour), now.Add(2*time.Hour), nil)

	found, err := store.Posts().ListPublic(ctx, posts.ListQuery{Kind: posts.ListGarage, Now: now, Limit: 50})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, sooner.ID, found[0].ID)
	assert.Equal(t, later.ID, found[1].ID)
}
