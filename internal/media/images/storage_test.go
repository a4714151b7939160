package images_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/media/images"
)

func setupTestStorage(t *testing.T) *images.Storage {
	t.Helper()

	storage, err := images.NewStorage(filepath.Join(t.TempDir(), "covers"))
	require.NoError(t, err)
	return storage
}

func TestNewStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "covers")
	_, err := images.NewStorage(dir)
	require.NoError(t, err)

	// Directory was created
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStorage_EmptyPath(t *testing.T) {
	_, err := images.NewStorage("")
	assert.Error(t, err)
}

func TestSaveAndGet(t *testing.T) {
	storage := setupTestStorage(t)

	data := []byte("fake image bytes")
	require.NoError(t, storage.Save("book-1", data))

	got, err := storage.Get("book-1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSave_Validation(t *testing.T) {
	storage := setupTestStorage(t)

	assert.Error(t, storage.Save("", []byte("data")))
	assert.Error(t, storage.Save("book-1", nil))
}

func TestGet_NotFound(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Get("missing")
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	storage := setupTestStorage(t)

	assert.False(t, storage.Exists("book-1"))
	require.NoError(t, storage.Save("book-1", []byte("data")))
	assert.True(t, storage.Exists("book-1"))
	assert.False(t, storage.Exists(""))
}

func TestDelete(t *testing.T) {
	storage := setupTestStorage(t)

	require.NoError(t, storage.Save("book-1", []byte("data")))
	require.NoError(t, storage.Delete("book-1"))
	assert.False(t, storage.Exists("book-1"))

	// Deleting again is not an error
	assert.NoError(t, storage.Delete("book-1"))
}

func TestHash(t *testing.T) {
	storage := setupTestStorage(t)

	require.NoError(t, storage.Save("book-1", []byte("data")))

	hash, err := storage.Hash("book-1")
	require.NoError(t, err)
	assert.Len(t, hash, 64) // Hex-encoded SHA256

	// Same content, same hash
	require.NoError(t, storage.Save("book-2", []byte("data")))
	hash2, err := storage.Hash("book-2")
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)
}

func TestPath(t *testing.T) {
	storage := setupTestStorage(t)
	assert.Equal(t, "book-1.jpg", filepath.Base(storage.Path("book-1")))
}
