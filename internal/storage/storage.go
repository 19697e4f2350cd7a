package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Remove when the stored object no longer exists.
var ErrNotFound = errors.New("stored file not found")

// Store is the port the auth service uses for profile images. Save returns
// the path the image is persisted (and later served) under; Remove deletes a
// previously saved path.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, path string) error
}
