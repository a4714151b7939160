package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/domain"
	domainerrors "github.com/nistake0/bookmemo-server/internal/errors"
	"github.com/nistake0/bookmemo-server/internal/store"
)

func setupTestMemos(t *testing.T) (*MemoService, *store.Store, func()) {
	t.Helper()

	testStore, cleanup := setupTestStore(t)
	svc := NewMemoService(testStore, testLogger())
	return svc, testStore, cleanup
}

func TestCreateMemo(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	memo, err := svc.CreateMemo(ctx, "usr-A", CreateMemoRequest{
		BookID:  "book-1",
		Text:    "月が綺麗ですね",
		Comment: "有名な逸話",
		Rating:  5,
		Page:    42,
		Tags:    []string{"名言", "名言", " 訳 "},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, memo.ID)
	assert.Equal(t, 42, memo.Page)
	assert.Equal(t, []string{"名言", "訳"}, memo.Tags, "tags are trimmed and deduplicated")

	// The book's memo count tracks.
	book, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 1, book.MemoCount)
}

func TestCreateMemo_BookMustExist(t *testing.T) {
	svc, _, cleanup := setupTestMemos(t)
	defer cleanup()

	_, err := svc.CreateMemo(context.Background(), "usr-A", CreateMemoRequest{
		BookID: "no-such-book",
		Text:   "text",
	})
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestCreateMemo_WrongUser(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	_, err := svc.CreateMemo(context.Background(), "usr-B", CreateMemoRequest{
		BookID: "book-1",
		Text:   "text",
	})
	assert.ErrorIs(t, err, store.ErrForbidden)
}

func TestCreateMemo_Validation(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	_, err := svc.CreateMemo(context.Background(), "usr-A", CreateMemoRequest{
		BookID: "book-1",
		Text:   "text",
		Rating: 9,
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestUpdateMemo(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)
	memo, err := svc.CreateMemo(ctx, "usr-A", CreateMemoRequest{BookID: "book-1", Text: "初稿"})
	require.NoError(t, err)

	newText := "推敲済み"
	rating := 4
	updated, err := svc.UpdateMemo(ctx, "usr-A", memo.ID, UpdateMemoRequest{
		Text:   &newText,
		Rating: &rating,
	})
	require.NoError(t, err)
	assert.Equal(t, "推敲済み", updated.Text)
	assert.Equal(t, 4, updated.Rating)
}

func TestUpdateMemo_WrongUser(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)
	memo, err := svc.CreateMemo(ctx, "usr-A", CreateMemoRequest{BookID: "book-1", Text: "text"})
	require.NoError(t, err)

	newText := "hijacked"
	_, err = svc.UpdateMemo(ctx, "usr-B", memo.ID, UpdateMemoRequest{Text: &newText})
	assert.ErrorIs(t, err, store.ErrForbidden)
}

func TestDeleteMemo(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)
	memo, err := svc.CreateMemo(ctx, "usr-A", CreateMemoRequest{BookID: "book-1", Text: "text"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMemo(ctx, "usr-A", memo.ID))

	_, err = svc.GetMemo(ctx, "usr-A", memo.ID)
	assert.ErrorIs(t, err, store.ErrMemoNotFound)

	book, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 0, book.MemoCount)
}

func TestListMemosForBook_NewestFirst(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	// Backdate creation times so the order is unambiguous.
	old := domain.NewMemo("memo-old", "book-1", "usr-A", "earlier")
	old.CreatedAt = old.CreatedAt.Add(-time.Hour)
	require.NoError(t, s.CreateMemo(ctx, old))
	recent := domain.NewMemo("memo-new", "book-1", "usr-A", "later")
	require.NoError(t, s.CreateMemo(ctx, recent))

	memos, err := svc.ListMemosForBook(ctx, "usr-A", "book-1")
	require.NoError(t, err)
	require.Len(t, memos, 2)
	assert.Equal(t, "memo-new", memos[0].ID)
	assert.Equal(t, "memo-old", memos[1].ID)
}

func TestListTags(t *testing.T) {
	svc, s, cleanup := setupTestMemos(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	for i, tags := range [][]string{
		{"名言", "皮肉"},
		{"名言"},
		{"名言", "比喩"},
	} {
		_, err := svc.CreateMemo(ctx, "usr-A", CreateMemoRequest{
			BookID: "book-1",
			Text:   "memo",
			Tags:   tags,
		})
		require.NoError(t, err, "memo %d", i)
	}

	counts, err := svc.ListTags(ctx, "usr-A")
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, TagCount{Tag: "名言", Count: 3}, counts[0])
	// Equal counts order alphabetically for determinism.
	assert.Equal(t, 1, counts[1].Count)
	assert.Equal(t, 1, counts[2].Count)
}
