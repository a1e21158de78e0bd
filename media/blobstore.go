package media

import (
	"context"
)

// Logical buckets segregating user media in the blob store.
const (
	FolderAvatars = "avatars"
	FolderPosts   = "posts"
	FolderChats   = "chats"
)

// BlobRef is what documents carry for an uploaded blob: the URL readers
// embed, plus the storage key needed to delete the blob later. A ref with an
// empty StorageKey (e.g. a default placeholder URL) is never deleted.
type BlobRef struct {
	URL        string `json:"url"`
	StorageKey string `json:"storageKey"`
}

func (r BlobRef) IsZero() bool {
	return r.URL == "" && r.StorageKey == ""
}

// Store is the object-storage client contract. Both calls hit an external
// service and can fail or time out independently of the document store.
type Store interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (BlobRef, error)
	Delete(ctx context.Context, storageKey string) error
}
