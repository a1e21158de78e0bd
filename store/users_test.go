package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemates/mates"
	"github.com/codemates/mates/media"
)

func TestCreateUserDefaults(t *testing.T) {
	s := openTestStore(t)
	u := mustCreateUser(t, s, "alice")

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, DefaultAvatarURL, u.Avatar.URL)
	assert.Empty(t, u.Avatar.StorageKey)
	assert.NotNil(t, u.TechStack)

	got, err := s.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestCreateUserUniqueness(t *testing.T) {
	s := openTestStore(t)
	mustCreateUser(t, s, "alice")

	dup := &User{Username: "alice", Name: "Other", Email: "other@example.com", PasswordHash: "x"}
	err := s.CreateUser(context.Background(), dup)
	require.ErrorIs(t, err, mates.ErrValidationFailed)

	dup = &User{Username: "otheralice", Name: "Other", Email: "alice@example.com", PasswordHash: "x"}
	err = s.CreateUser(context.Background(), dup)
	require.ErrorIs(t, err, mates.ErrValidationFailed)
}

func TestUserLookups(t *testing.T) {
	s := openTestStore(t)
	u := mustCreateUser(t, s, "alice")

	byEmail, err := s.UserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byUsername, err := s.UserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byUsername.ID)

	_, err = s.UserByID(context.Background(), "nope")
	require.ErrorIs(t, err, mates.ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	s := openTestStore(t)
	mustCreateUser(t, s, "alice")
	mustCreateUser(t, s, "alicia")
	mustCreateUser(t, s, "bob")

	refs, err := s.SearchUsers(context.Background(), "ali", 0)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "alice", refs[0].Username)
	assert.Equal(t, "alicia", refs[1].Username)
}

func TestUpdateUserPartial(t *testing.T) {
	s := openTestStore(t)
	u := mustCreateUser(t, s, "alice")

	bio := "gopher"
	stack := []string{"go", "sqlite"}
	updated, old, err := s.UpdateUser(context.Background(), u.ID, UserUpdate{
		Bio:       &bio,
		TechStack: &stack,
	})
	require.NoError(t, err)
	assert.True(t, old.IsZero(), "no avatar replacement, no old ref")
	assert.Equal(t, "gopher", updated.Bio)
	assert.Equal(t, stack, updated.TechStack)
	assert.Equal(t, "alice", updated.Name, "untouched fields stay")
}

func TestUpdateUserAvatarReturnsOldRef(t *testing.T) {
	s := openTestStore(t)
	u := mustCreateUser(t, s, "alice")

	first := media.BlobRef{URL: "https://blobs.test/avatars/a1", StorageKey: "avatars/a1"}
	_, old, err := s.UpdateUser(context.Background(), u.ID, UserUpdate{Avatar: &first})
	require.NoError(t, err)
	assert.Equal(t, DefaultAvatarURL, old.URL)
	assert.Empty(t, old.StorageKey, "the placeholder has no storage key")

	second := media.BlobRef{URL: "https://blobs.test/avatars/a2", StorageKey: "avatars/a2"}
	updated, old, err := s.UpdateUser(context.Background(), u.ID, UserUpdate{Avatar: &second})
	require.NoError(t, err)
	assert.Equal(t, first, old)
	assert.Equal(t, second, updated.Avatar)
}

func TestUpdateUserNotFound(t *testing.T) {
	s := openTestStore(t)
	name := "ghost"
	_, _, err := s.UpdateUser(context.Background(), "nope", UserUpdate{Name: &name})
	require.ErrorIs(t, err, mates.ErrNotFound)
}

func TestToggleFollow(t *testing.T) {
	s := openTestStore(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")
	ctx := context.Background()

	following, err := s.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	followers, err := s.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)

	following, err = s.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	followers, err = s.Followers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)

	_, err = s.ToggleFollow(ctx, alice.ID, alice.ID)
	require.ErrorIs(t, err, mates.ErrValidationFailed)

	_, err = s.ToggleFollow(ctx, alice.ID, "nope")
	require.ErrorIs(t, err, mates.ErrNotFound)
}

func TestToggleFollowConcurrent(t *testing.T) {
	s := openTestStore(t)
	bob := mustCreateUser(t, s, "bob")
	ctx := context.Background()

	followers := make([]*User, 10)
	for i := range followers {
		followers[i] = mustCreateUser(t, s, "f"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, f := range followers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.ToggleFollow(ctx, id, bob.ID)
			assert.NoError(t, err)
		}(f.ID)
	}
	wg.Wait()

	got, err := s.Followers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, got, len(followers), "concurrent toggles must not lose edges")
}
