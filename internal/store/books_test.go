package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/store"
)

func newTestBook(id, userID, isbn string) *domain.Book {
	b := &domain.Book{
		UserID:  userID,
		ISBN:    isbn,
		Title:   "Test Book " + id,
		Authors: []string{"Test Author"},
		Status:  domain.StatusTsundoku,
	}
	b.ID = id
	b.InitTimestamps()
	return b
}

func TestCreateBook(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	book := newTestBook("book-1", "usr-A", "9784101010014")

	require.NoError(t, s.CreateBook(ctx, book))

	retrieved, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, book.ID, retrieved.ID)
	assert.Equal(t, book.UserID, retrieved.UserID)
	assert.Equal(t, book.Title, retrieved.Title)
	assert.Equal(t, domain.StatusTsundoku, retrieved.Status)
}

func TestCreateBook_Duplicate(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	book := newTestBook("book-1", "usr-A", "")

	require.NoError(t, s.CreateBook(ctx, book))
	err := s.CreateBook(ctx, book)
	assert.ErrorIs(t, err, store.ErrBookExists)
}

func TestCreateBook_DuplicateISBNSameUser(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-1", "usr-A", "9784101010014")))

	err := s.CreateBook(ctx, newTestBook("book-2", "usr-A", "9784101010014"))
	assert.ErrorIs(t, err, store.ErrISBNExists)

	// Same ISBN for a different user is fine.
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-3", "usr-B", "9784101010014")))
}

func TestGetBook_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetBook(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestGetBookForUser_Ownership(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-1", "usr-A", "")))

	book, err := s.GetBookForUser(ctx, "book-1", "usr-A")
	require.NoError(t, err)
	assert.Equal(t, "book-1", book.ID)

	_, err = s.GetBookForUser(ctx, "book-1", "usr-B")
	var stErr *store.Error
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, 403, stErr.HTTPCode())
}

func TestGetBookByISBN(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-1", "usr-A", "9784101010014")))

	book, err := s.GetBookByISBN(ctx, "usr-A", "9784101010014")
	require.NoError(t, err)
	assert.Equal(t, "book-1", book.ID)

	_, err = s.GetBookByISBN(ctx, "usr-B", "9784101010014")
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestUpdateBook_ISBNIndexMaintained(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	book := newTestBook("book-1", "usr-A", "9784101010014")
	require.NoError(t, s.CreateBook(ctx, book))

	book.ISBN = "9780306406157"
	require.NoError(t, s.UpdateBook(ctx, book))

	// Old ISBN no longer resolves.
	_, err := s.GetBookByISBN(ctx, "usr-A", "9784101010014")
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	// New ISBN does.
	found, err := s.GetBookByISBN(ctx, "usr-A", "9780306406157")
	require.NoError(t, err)
	assert.Equal(t, "book-1", found.ID)
}

func TestUpdateBookStatus(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-1", "usr-A", "")))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	book, err := s.UpdateBookStatus(ctx, "book-1", domain.StatusFinished, at)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, book.Status)
	require.NotNil(t, book.FinishedAt)
	assert.True(t, book.FinishedAt.Equal(at))

	// Moving away from finished clears FinishedAt.
	book, err = s.UpdateBookStatus(ctx, "book-1", domain.StatusReReading, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReReading, book.Status)
	assert.Nil(t, book.FinishedAt)
}

func TestDeleteBook_Cascades(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-1", "usr-A", "9784101010014")))

	memo := domain.NewMemo("memo-1", "book-1", "usr-A", "great opening chapter")
	require.NoError(t, s.CreateMemo(ctx, memo))

	entry := domain.NewStatusHistoryEntry("hist-1", "book-1", "usr-A",
		domain.StatusReading, domain.StatusTsundoku, time.Now(), true)
	require.NoError(t, s.AppendHistoryEntry(ctx, entry))

	require.NoError(t, s.DeleteBook(ctx, "book-1"))

	_, err := s.GetBook(ctx, "book-1")
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	memos, err := s.ListMemosForBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Empty(t, memos)

	history, err := s.ListHistoryForBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// ISBN freed for re-registration.
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-2", "usr-A", "9784101010014")))
}

func TestListBooksForUser(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-1", "usr-A", "")))
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-2", "usr-A", "")))
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-3", "usr-B", "")))

	result, err := s.ListBooksForUser(ctx, "usr-A", store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.False(t, result.HasMore)

	result, err = s.ListBooksForUser(ctx, "usr-B", store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestListBooksForUser_Pagination(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	ids := []string{"book-1", "book-2", "book-3", "book-4", "book-5"}
	for _, id := range ids {
		require.NoError(t, s.CreateBook(ctx, newTestBook(id, "usr-A", "")))
	}

	var collected []string
	params := store.PaginationParams{Limit: 2}
	for {
		result, err := s.ListBooksForUser(ctx, "usr-A", params)
		require.NoError(t, err)
		for _, b := range result.Items {
			collected = append(collected, b.ID)
		}
		if !result.HasMore {
			break
		}
		require.NotEmpty(t, result.NextCursor)
		params.Cursor = result.NextCursor
	}

	assert.ElementsMatch(t, ids, collected)
}

func TestListBooksForUser_InvalidCursor(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.ListBooksForUser(context.Background(), "usr-A",
		store.PaginationParams{Limit: 10, Cursor: "not base64!!"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrBookNotFound))
}

func TestCountBooksForUser(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-1", "usr-A", "")))
	require.NoError(t, s.CreateBook(ctx, newTestBook("book-2", "usr-A", "")))

	count, err := s.CountBooksForUser(ctx, "usr-A")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.CountBooksForUser(ctx, "usr-B")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
