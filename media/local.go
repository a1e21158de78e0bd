package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalCAS stores blob bytes in a local content-addressed tree, for
// development setups and tests that shouldn't need a bucket. The tree is
// expected to be exposed read-only over HTTP under baseURL.
type LocalCAS struct {
	root    string
	baseURL string
}

func NewLocalCAS(root, baseURL string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory the tree lives in, for mounting a file server.
func (c *LocalCAS) Root() string { return c.root }

func (c *LocalCAS) Upload(ctx context.Context, data []byte, contentType, folder string) (BlobRef, error) {
	if err := ctx.Err(); err != nil {
		return BlobRef{}, err
	}

	sum := sha256.Sum256(data)
	key := folder + "/" + hex.EncodeToString(sum[:]) + extensionFor(contentType)
	ref := BlobRef{URL: c.baseURL + "/" + key, StorageKey: key}

	dst, err := c.pathFromKey(key)
	if err != nil {
		return BlobRef{}, err
	}
	if _, err := os.Stat(dst); err == nil {
		return ref, nil
	}

	tmp, err := os.CreateTemp(filepath.Join(c.root, "tmp"), "put-*")
	if err != nil {
		return BlobRef{}, err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return BlobRef{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return BlobRef{}, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		os.Remove(tmpPath)
		return BlobRef{}, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return BlobRef{}, err
	}

	return ref, nil
}

// Delete removes a blob object. Missing files are ignored.
func (c *LocalCAS) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFromKey(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *LocalCAS) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(c.root, clean), nil
}
