package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemates/mates"
)

type fakeStore struct {
	mu         sync.Mutex
	uploads    int
	deleted    []string
	failUpload bool
	failDelete bool
}

func (f *fakeStore) Upload(ctx context.Context, data []byte, contentType, folder string) (BlobRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return BlobRef{}, errors.New("bucket unreachable")
	}
	f.uploads++
	key := fmt.Sprintf("%s/blob-%d", folder, f.uploads)
	return BlobRef{URL: "https://blobs.test/" + key, StorageKey: key}, nil
}

func (f *fakeStore) Delete(ctx context.Context, storageKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("bucket unreachable")
	}
	f.deleted = append(f.deleted, storageKey)
	return nil
}

func (f *fakeStore) deletions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func TestReplaceDeletesOldAfterCommit(t *testing.T) {
	fs := &fakeStore{}
	orch := NewOrchestrator(fs, nil)

	old := BlobRef{URL: "https://blobs.test/posts/stale", StorageKey: "posts/stale"}
	ref, err := orch.Replace(context.Background(), FolderPosts, []byte("img"), "image/png",
		func(newRef BlobRef) (BlobRef, error) {
			require.NotEmpty(t, newRef.StorageKey)
			return old, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "posts/blob-1", ref.StorageKey)

	orch.Wait()
	assert.Equal(t, []string{"posts/stale"}, fs.deletions())
}

func TestReplaceCreateDeletesNothing(t *testing.T) {
	fs := &fakeStore{}
	orch := NewOrchestrator(fs, nil)

	_, err := orch.Replace(context.Background(), FolderPosts, []byte("img"), "image/png",
		func(BlobRef) (BlobRef, error) { return BlobRef{}, nil })
	require.NoError(t, err)

	orch.Wait()
	assert.Empty(t, fs.deletions())
}

func TestReplaceRollsBackOnCommitFailure(t *testing.T) {
	fs := &fakeStore{}
	orch := NewOrchestrator(fs, nil)

	_, err := orch.Replace(context.Background(), FolderAvatars, []byte("img"), "image/png",
		func(BlobRef) (BlobRef, error) {
			return BlobRef{}, errors.New("database is locked")
		})
	require.ErrorIs(t, err, mates.ErrPersistenceFailed)

	orch.Wait()
	assert.Equal(t, []string{"avatars/blob-1"}, fs.deletions(),
		"the uploaded blob must be rolled back when the commit fails")
}

func TestReplaceKeepsCallerErrorKinds(t *testing.T) {
	fs := &fakeStore{}
	orch := NewOrchestrator(fs, nil)

	_, err := orch.Replace(context.Background(), FolderPosts, []byte("img"), "image/png",
		func(BlobRef) (BlobRef, error) {
			return BlobRef{}, fmt.Errorf("%w: not the post owner", mates.ErrForbidden)
		})
	require.ErrorIs(t, err, mates.ErrForbidden)
	assert.NotErrorIs(t, err, mates.ErrPersistenceFailed)

	_, err = orch.Replace(context.Background(), FolderPosts, []byte("img"), "image/png",
		func(BlobRef) (BlobRef, error) {
			return BlobRef{}, fmt.Errorf("%w: post", mates.ErrNotFound)
		})
	require.ErrorIs(t, err, mates.ErrNotFound)

	orch.Wait()
	assert.ElementsMatch(t, []string{"posts/blob-1", "posts/blob-2"}, fs.deletions(),
		"rollback still runs for kinded commit errors")
}

func TestReplaceAbortsOnUploadFailure(t *testing.T) {
	fs := &fakeStore{failUpload: true}
	orch := NewOrchestrator(fs, nil)

	committed := false
	_, err := orch.Replace(context.Background(), FolderPosts, []byte("img"), "image/png",
		func(BlobRef) (BlobRef, error) {
			committed = true
			return BlobRef{}, nil
		})
	require.ErrorIs(t, err, mates.ErrUpstreamUnavailable)
	assert.False(t, committed, "commit must not run when the upload fails")

	orch.Wait()
	assert.Empty(t, fs.deletions())
}

func TestReplaceSkipsPlaceholderRefs(t *testing.T) {
	fs := &fakeStore{}
	orch := NewOrchestrator(fs, nil)

	// default avatars carry a URL but no storage key and must never be
	// sent to the blob store for deletion
	placeholder := BlobRef{URL: "https://placehold.co/200x200"}
	_, err := orch.Replace(context.Background(), FolderAvatars, []byte("img"), "image/png",
		func(BlobRef) (BlobRef, error) { return placeholder, nil })
	require.NoError(t, err)

	orch.Wait()
	assert.Empty(t, fs.deletions())
}

func TestReplaceCleanupFailureDoesNotMaskSuccess(t *testing.T) {
	fs := &fakeStore{failDelete: true}
	orch := NewOrchestrator(fs, nil)

	old := BlobRef{URL: "https://blobs.test/posts/stale", StorageKey: "posts/stale"}
	ref, err := orch.Replace(context.Background(), FolderPosts, []byte("img"), "image/png",
		func(BlobRef) (BlobRef, error) { return old, nil })
	require.NoError(t, err)
	assert.NotEmpty(t, ref.StorageKey)

	orch.Wait()
	assert.Empty(t, fs.deletions())
}

func TestDeleteOwnedRemovesRecordFirst(t *testing.T) {
	fs := &fakeStore{}
	orch := NewOrchestrator(fs, nil)

	err := orch.DeleteOwned(context.Background(), func() (BlobRef, error) {
		assert.Empty(t, fs.deletions(), "blob delete must not precede the record delete")
		return BlobRef{URL: "https://blobs.test/posts/gone", StorageKey: "posts/gone"}, nil
	})
	require.NoError(t, err)

	orch.Wait()
	assert.Equal(t, []string{"posts/gone"}, fs.deletions())
}

func TestDeleteOwnedPropagatesRemoveError(t *testing.T) {
	fs := &fakeStore{}
	orch := NewOrchestrator(fs, nil)

	boom := fmt.Errorf("%w: post", mates.ErrNotFound)
	err := orch.DeleteOwned(context.Background(), func() (BlobRef, error) {
		return BlobRef{StorageKey: "posts/gone"}, boom
	})
	require.ErrorIs(t, err, mates.ErrNotFound)

	orch.Wait()
	assert.Empty(t, fs.deletions(), "a failed record delete must leave the blob alone")
}
