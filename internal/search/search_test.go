package search_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/search"
)

func setupTestIndex(t *testing.T) (*search.Index, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "bookmemo-search-test-*")
	require.NoError(t, err)

	idx, err := search.NewIndex(search.Options{DataPath: tmpDir})
	require.NoError(t, err)

	cleanup := func() {
		idx.Close()
		os.RemoveAll(tmpDir)
	}
	return idx, cleanup
}

func newIndexedBook(id, userID, title string) *domain.Book {
	book := &domain.Book{
		UserID: userID,
		Title:  title,
		Status: domain.StatusTsundoku,
	}
	book.ID = id
	book.InitTimestamps()
	return book
}

func TestIndexAndSearchBook(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	book := newIndexedBook("book-1", "usr-A", "The Go Programming Language")
	book.Authors = []string{"Alan Donovan", "Brian Kernighan"}
	require.NoError(t, idx.IndexBook(ctx, book))

	params := search.DefaultParams("usr-A")
	params.Query = "programming"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.Equal(t, search.DocTypeBook, result.Hits[0].Type)
}

func TestSearchByAuthor(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	book := newIndexedBook("book-1", "usr-A", "The Go Programming Language")
	book.Authors = []string{"Alan Donovan"}
	require.NoError(t, idx.IndexBook(ctx, book))

	params := search.DefaultParams("usr-A")
	params.Query = "donovan"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}

func TestSearchJapaneseTitle(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-1", "usr-A", "吾輩は猫である")))
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-2", "usr-A", "坊っちゃん")))

	params := search.DefaultParams("usr-A")
	params.Query = "猫"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestSearchWidthFolding(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	// Full-width "Ｇｏ" in the stored title
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-1", "usr-A", "Ｇｏ言語プログラミング")))

	// Half-width query still matches
	params := search.DefaultParams("usr-A")
	params.Query = "go"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}

func TestSearchScopedToUser(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-1", "usr-A", "shared title")))
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-2", "usr-B", "shared title")))

	params := search.DefaultParams("usr-A")
	params.Query = "shared"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestSearchRequiresUser(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	_, err := idx.Search(context.Background(), search.Params{Query: "anything"})
	assert.Error(t, err)
}

func TestSearchMemos(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	memo := domain.NewMemo("memo-1", "book-1", "usr-A", "a striking passage about whales")
	memo.Page = 42
	require.NoError(t, idx.IndexMemo(ctx, memo))
	require.NoError(t, idx.IndexMemo(ctx, domain.NewMemo("memo-2", "book-2", "usr-A", "notes on gardening")))

	params := search.DefaultParams("usr-A")
	params.Query = "whales"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "memo-1", result.Hits[0].ID)
	assert.Equal(t, search.DocTypeMemo, result.Hits[0].Type)
	assert.Equal(t, "book-1", result.Hits[0].BookID)
	assert.Equal(t, 42, result.Hits[0].Page)
}

func TestSearchFilterByType(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-1", "usr-A", "whale watching")))
	require.NoError(t, idx.IndexMemo(ctx, domain.NewMemo("memo-1", "book-1", "usr-A", "whale chapter was great")))

	params := search.DefaultParams("usr-A")
	params.Query = "whale"
	params.Types = []string{"memo"}
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "memo-1", result.Hits[0].ID)
}

func TestSearchFilterByStatus(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	reading := newIndexedBook("book-1", "usr-A", "history of rome")
	reading.Status = domain.StatusReading
	finished := newIndexedBook("book-2", "usr-A", "history of greece")
	finished.Status = domain.StatusFinished
	require.NoError(t, idx.IndexBook(ctx, reading))
	require.NoError(t, idx.IndexBook(ctx, finished))

	params := search.DefaultParams("usr-A")
	params.Query = "history"
	params.Statuses = []string{"finished"}
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "book-2", result.Hits[0].ID)
}

func TestSearchFilterByTag(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	tagged := newIndexedBook("book-1", "usr-A", "dune")
	tagged.Tags = []string{"sci-fi"}
	require.NoError(t, idx.IndexBook(ctx, tagged))
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-2", "usr-A", "dune messiah")))

	params := search.DefaultParams("usr-A")
	params.Tags = []string{"sci-fi"}
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestSearchMemosForBook(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, idx.IndexMemo(ctx, domain.NewMemo("memo-1", "book-1", "usr-A", "quote one")))
	require.NoError(t, idx.IndexMemo(ctx, domain.NewMemo("memo-2", "book-2", "usr-A", "quote two")))

	params := search.DefaultParams("usr-A")
	params.Query = "quote"
	params.BookID = "book-1"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "memo-1", result.Hits[0].ID)
}

func TestDeleteBookFromIndex(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-1", "usr-A", "ephemeral")))
	require.NoError(t, idx.DeleteBook(ctx, "book-1"))

	params := search.DefaultParams("usr-A")
	params.Query = "ephemeral"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.Total)
}

func TestSearchFacets(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	reading := newIndexedBook("book-1", "usr-A", "alpha")
	reading.Status = domain.StatusReading
	finished := newIndexedBook("book-2", "usr-A", "beta")
	finished.Status = domain.StatusFinished
	require.NoError(t, idx.IndexBook(ctx, reading))
	require.NoError(t, idx.IndexBook(ctx, finished))
	require.NoError(t, idx.IndexMemo(ctx, domain.NewMemo("memo-1", "book-1", "usr-A", "gamma")))

	result, err := idx.Search(ctx, search.DefaultParams("usr-A"))
	require.NoError(t, err)

	assert.Equal(t, uint64(3), result.Total)

	typeCounts := map[string]int{}
	for _, f := range result.Facets.Types {
		typeCounts[f.Value] = f.Count
	}
	assert.Equal(t, 2, typeCounts["book"])
	assert.Equal(t, 1, typeCounts["memo"])
}

func TestSearchSortRecent(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	older := newIndexedBook("book-1", "usr-A", "first")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newIndexedBook("book-2", "usr-A", "second")
	require.NoError(t, idx.IndexBook(ctx, older))
	require.NoError(t, idx.IndexBook(ctx, newer))

	params := search.DefaultParams("usr-A")
	params.SortBy = "recent"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Len(t, result.Hits, 2)
	assert.Equal(t, "book-2", result.Hits[0].ID)
	assert.Equal(t, "book-1", result.Hits[1].ID)
}

func TestDocumentCount(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-1", "usr-A", "one")))
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-2", "usr-A", "two")))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRebuildEmptiesIndex(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, idx.IndexBook(ctx, newIndexedBook("book-1", "usr-A", "to be dropped")))
	require.NoError(t, idx.Rebuild())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndexDocumentsBatch(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*search.Document{
		search.BookDocument(newIndexedBook("book-1", "usr-A", "batch one")),
		search.BookDocument(newIndexedBook("book-2", "usr-A", "batch two")),
		search.MemoDocument(domain.NewMemo("memo-1", "book-1", "usr-A", "batch memo")),
	}
	require.NoError(t, idx.IndexDocuments(docs))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
