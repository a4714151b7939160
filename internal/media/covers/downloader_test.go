package covers_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/media/covers"
	"github.com/nistake0/bookmemo-server/internal/media/images"
)

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 10, 15))
	for y := 0; y < 15; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y * 10), B: uint8(x * 10), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func setupTestDownloader(t *testing.T) (*covers.Downloader, *images.Storage) {
	t.Helper()

	storage, err := images.NewStorage(filepath.Join(t.TempDir(), "covers"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor := images.NewProcessor(storage, logger)
	return covers.NewDownloader(processor, logger), storage
}

func TestDownload(t *testing.T) {
	downloader, storage := setupTestDownloader(t)

	imgData := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(imgData)
	}))
	defer srv.Close()

	result := downloader.Download(context.Background(), "book-1", srv.URL+"/cover.png")

	require.True(t, result.Success, "download failed: %v", result.Error)
	assert.Equal(t, 10, result.Width)
	assert.Equal(t, 15, result.Height)
	assert.Equal(t, int64(len(imgData)), result.Size)
	assert.NotEmpty(t, result.BlurHash)
	assert.True(t, storage.Exists("book-1"))
}

func TestDownload_EmptyURL(t *testing.T) {
	downloader, _ := setupTestDownloader(t)

	result := downloader.Download(context.Background(), "book-1", "")
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
}

func TestDownload_NotFound(t *testing.T) {
	downloader, storage := setupTestDownloader(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := downloader.Download(context.Background(), "book-1", srv.URL+"/missing.jpg")
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
	assert.False(t, storage.Exists("book-1"))
}

func TestDownload_NotAnImage(t *testing.T) {
	downloader, _ := setupTestDownloader(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a cover</html>"))
	}))
	defer srv.Close()

	result := downloader.Download(context.Background(), "book-1", srv.URL+"/cover.jpg")
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
}

func TestDetectSource(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cover.openbd.jp/9784101010014.jpg", "openbd"},
		{"https://books.google.com/books/content?id=abc", "googlebooks"},
		{"https://www.googleapis.com/books/v1/something", "googlebooks"},
		{"https://example.com/cover.jpg", "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, covers.DetectSource(tt.url), tt.url)
	}
}
