package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore persists profile images on the local filesystem and addresses
// them by the same relative path they are served back under.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed and returns a store
// rooted at it.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the file under a timestamp-prefixed name and returns its
// relative path, e.g. "uploads/profiles/1719489200000avatar.png".
func (s *LocalStore) Save(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	key := objectKey(filename)
	dst := filepath.Join(s.dir, key)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path.Join(filepath.ToSlash(s.dir), key), nil
}

// Remove deletes a previously saved path. Paths outside the upload dir are
// rejected so a corrupted record cannot delete arbitrary files.
func (s *LocalStore) Remove(_ context.Context, storedPath string) error {
	clean := filepath.Clean(filepath.FromSlash(storedPath))
	if !strings.HasPrefix(clean, filepath.Clean(s.dir)+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside the upload directory", storedPath)
	}

	if err := os.Remove(clean); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// objectKey names a stored image by upload time plus the original filename,
// keeping collisions between users with the same filename apart. Any path
// separators in the client-supplied name are stripped.
func objectKey(filename string) string {
	base := filepath.Base(filepath.FromSlash(filename))
	return fmt.Sprintf("%d%s", time.Now().UnixMilli(), base)
}
