package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCASRoundTrip(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir(), "http://localhost:8080/media/")
	require.NoError(t, err)

	ref, err := cas.Upload(context.Background(), []byte("payload"), "image/png", FolderPosts)
	require.NoError(t, err)
	assert.True(t, len(ref.StorageKey) > len(FolderPosts)+1)
	assert.Equal(t, "http://localhost:8080/media/"+ref.StorageKey, ref.URL)

	data, err := os.ReadFile(filepath.Join(cas.Root(), filepath.FromSlash(ref.StorageKey)))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// same bytes, same address
	again, err := cas.Upload(context.Background(), []byte("payload"), "image/png", FolderPosts)
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	require.NoError(t, cas.Delete(context.Background(), ref.StorageKey))
	_, err = os.Stat(filepath.Join(cas.Root(), filepath.FromSlash(ref.StorageKey)))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalCASDeleteMissing(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir(), "http://localhost:8080/media")
	require.NoError(t, err)
	assert.NoError(t, cas.Delete(context.Background(), "posts/never-existed.png"))
}

func TestLocalCASRejectsTraversal(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir(), "http://localhost:8080/media")
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside", "posts/../../outside"} {
		assert.Error(t, cas.Delete(context.Background(), key), "key %q", key)
	}
}
