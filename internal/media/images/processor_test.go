package images_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/media/images"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 100, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func setupTestProcessor(t *testing.T) (*images.Processor, *images.Storage) {
	t.Helper()

	storage, err := images.NewStorage(filepath.Join(t.TempDir(), "covers"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return images.NewProcessor(storage, logger), storage
}

func TestProcess(t *testing.T) {
	processor, storage := setupTestProcessor(t)

	data := testPNG(t, 12, 8)
	info, err := processor.Process("book-1", data)
	require.NoError(t, err)

	assert.Equal(t, 12, info.Width)
	assert.Equal(t, 8, info.Height)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.NotEmpty(t, info.BlurHash)
	assert.Len(t, info.Hash, 64)
	assert.True(t, storage.Exists("book-1"))
}

func TestProcess_RejectsEmpty(t *testing.T) {
	processor, _ := setupTestProcessor(t)

	_, err := processor.Process("book-1", nil)
	assert.Error(t, err)
}

func TestProcess_RejectsNonImage(t *testing.T) {
	processor, storage := setupTestProcessor(t)

	_, err := processor.Process("book-1", []byte("definitely not an image"))
	require.Error(t, err)
	assert.False(t, storage.Exists("book-1"))
}

func TestComputeBlurHash(t *testing.T) {
	data := testPNG(t, 32, 48)

	hash, err := images.ComputeBlurHash(data)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	// Same image always gives the same hash
	hash2, err := images.ComputeBlurHash(data)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)
}

func TestComputeBlurHash_InvalidData(t *testing.T) {
	_, err := images.ComputeBlurHash([]byte("garbage"))
	assert.Error(t, err)
}
