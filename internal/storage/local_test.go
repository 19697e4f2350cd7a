package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ctx := context.Background()

	path, err := store.Save(ctx, "avatar.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "avatar.png"))
	require.True(t, strings.HasPrefix(path, filepath.ToSlash(dir)))

	data, err := os.ReadFile(filepath.FromSlash(path))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Remove(ctx, path))

	_, err = os.Stat(filepath.FromSlash(path))
	require.True(t, os.IsNotExist(err))
}

func TestLocalStore_SaveStripsClientPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	path, err := store.Save(context.Background(), "../../etc/avatar.png", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)

	// The stored file stays inside the upload directory regardless of the
	// client-supplied name.
	rel, err := filepath.Rel(dir, filepath.FromSlash(path))
	require.NoError(t, err)
	require.False(t, strings.HasPrefix(rel, ".."))
}

func TestLocalStore_RemoveMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	err = store.Remove(context.Background(), filepath.ToSlash(filepath.Join(dir, "gone.png")))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_RemoveOutsideDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	outside := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	err = store.Remove(context.Background(), outside)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	// The file outside the upload dir is untouched.
	_, statErr := os.Stat(outside)
	require.NoError(t, statErr)
}
