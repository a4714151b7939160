package googlebooks

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/metadata"
)

const sampleResponse = `{
  "totalItems": 1,
  "items": [
    {
      "volumeInfo": {
        "title": "The Go Programming Language",
        "authors": ["Alan A. A. Donovan", "Brian W. Kernighan"],
        "publisher": "Addison-Wesley",
        "publishedDate": "2015-11-16",
        "description": "The authoritative resource.",
        "imageLinks": {
          "thumbnail": "http://books.google.com/books/content?id=abc"
        }
      }
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), "test-key")
	c.baseURL = srv.URL
	return c
}

func TestLookupISBN(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	})

	info, err := c.LookupISBN(context.Background(), "9780134190440")
	require.NoError(t, err)

	assert.Equal(t, "isbn:9780134190440", gotQuery)
	assert.Equal(t, "The Go Programming Language", info.Title)
	assert.Equal(t, []string{"Alan A. A. Donovan", "Brian W. Kernighan"}, info.Authors)
	assert.Equal(t, "Addison-Wesley", info.Publisher)
	assert.Equal(t, "2015", info.PublishYear)
	assert.Equal(t, "https://books.google.com/books/content?id=abc", info.CoverURL)
	assert.Equal(t, "googlebooks", info.Source)
}

func TestLookupISBN_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"totalItems": 0}`))
	})

	_, err := c.LookupISBN(context.Background(), "9784999999999")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestLookupISBN_NoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("key"))
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), "")
	c.baseURL = srv.URL

	_, err := c.LookupISBN(context.Background(), "9780134190440")
	require.NoError(t, err)
}

func TestLookupISBN_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.LookupISBN(context.Background(), "9780134190440")
	require.Error(t, err)
	assert.NotErrorIs(t, err, metadata.ErrNotFound)
}

func TestCoverURL(t *testing.T) {
	assert.Equal(t, "https://x/img", coverURL(imageLinks{Thumbnail: "http://x/img"}))
	assert.Equal(t, "https://x/small", coverURL(imageLinks{SmallThumbnail: "https://x/small"}))
	assert.Empty(t, coverURL(imageLinks{}))
}
