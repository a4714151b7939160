package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/domain"
	domainerrors "github.com/nistake0/bookmemo-server/internal/errors"
	"github.com/nistake0/bookmemo-server/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "service-test-*")
	require.NoError(t, err)

	testStore, err := store.New(filepath.Join(tmpDir, "db"), slog.New(slog.DiscardHandler), store.NewNoopEmitter())
	require.NoError(t, err)

	cleanup := func() {
		testStore.Close()
		os.RemoveAll(tmpDir)
	}
	return testStore, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func createTestBook(t *testing.T, s *store.Store, bookID, userID string, status domain.ReadingStatus) *domain.Book {
	t.Helper()

	book := &domain.Book{
		UserID: userID,
		Title:  "テスト本 " + bookID,
		Status: status,
	}
	book.ID = bookID
	book.InitTimestamps()
	require.NoError(t, s.CreateBook(context.Background(), book))
	return book
}

func setupTestHistory(t *testing.T) (*StatusHistoryService, *store.Store, func()) {
	t.Helper()

	testStore, cleanup := setupTestStore(t)
	svc := NewStatusHistoryService(testStore, testLogger())
	return svc, testStore, cleanup
}

func TestAppendManual(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	past := time.Now().Add(-48 * time.Hour)
	entry, err := svc.AppendManual(ctx, "usr-A", "book-1", past, domain.StatusReading, domain.StatusTsundoku)
	require.NoError(t, err)
	assert.True(t, entry.Manual)
	assert.Equal(t, "usr-A", entry.RecordedBy)

	entries := svc.List(ctx, "book-1")
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, domain.StatusReading, entries[0].Status)
}

func TestAppendManual_AllStatuses(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	// Spread the dates out so the duplicate guard does not trip.
	base := time.Now().Add(-30 * 24 * time.Hour)
	for i, status := range domain.AllStatuses() {
		_, err := svc.AppendManual(ctx, "usr-A", "book-1", base.Add(time.Duration(i)*time.Hour), status, "")
		require.NoError(t, err, "status %s", status)
	}

	assert.Len(t, svc.List(ctx, "book-1"), len(domain.AllStatuses()))
}

func TestAppendManual_InvalidStatus(t *testing.T) {
	svc, _, cleanup := setupTestHistory(t)
	defer cleanup()

	_, err := svc.AppendManual(context.Background(), "usr-A", "book-1",
		time.Now().Add(-time.Hour), domain.ReadingStatus("devoured"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAppendManual_FutureDate(t *testing.T) {
	svc, _, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	future := time.Now().Add(time.Hour)
	_, err := svc.AppendManual(ctx, "usr-A", "book-1", future, domain.StatusReading, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// Nothing was written.
	assert.Empty(t, svc.List(ctx, "book-1"))
}

func TestAppendManual_DuplicateWindow(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	at := time.Now().Add(-24 * time.Hour)
	_, err := svc.AppendManual(ctx, "usr-A", "book-1", at, domain.StatusReading, "")
	require.NoError(t, err)

	_, err = svc.AppendManual(ctx, "usr-A", "book-1", at.Add(30*time.Second), domain.StatusFinished, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	// Outside the window is fine.
	_, err = svc.AppendManual(ctx, "usr-A", "book-1", at.Add(2*time.Minute), domain.StatusFinished, "")
	require.NoError(t, err)

	assert.Len(t, svc.List(ctx, "book-1"), 2)
}

func TestAppend_Automatic(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	before := time.Now()
	entry, err := svc.Append(ctx, "usr-A", "book-1", domain.StatusReading, domain.StatusTsundoku, "started on the train")
	require.NoError(t, err)

	assert.False(t, entry.Manual)
	assert.Equal(t, "started on the train", entry.Notes)
	assert.False(t, entry.ChangedAt.Before(before))
}

func TestAppend_InvalidStatus(t *testing.T) {
	svc, _, cleanup := setupTestHistory(t)
	defer cleanup()

	_, err := svc.Append(context.Background(), "usr-A", "book-1", "nope", "", "")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestList_SortedDescending(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	base := time.Now().Add(-10 * 24 * time.Hour)
	_, err := svc.AppendManual(ctx, "usr-A", "book-1", base, domain.StatusReading, "")
	require.NoError(t, err)
	_, err = svc.AppendManual(ctx, "usr-A", "book-1", base.Add(72*time.Hour), domain.StatusFinished, "")
	require.NoError(t, err)
	_, err = svc.AppendManual(ctx, "usr-A", "book-1", base.Add(24*time.Hour), domain.StatusReReading, "")
	require.NoError(t, err)

	entries := svc.List(ctx, "book-1")
	require.Len(t, entries, 3)
	assert.Equal(t, domain.StatusFinished, entries[0].Status)
	assert.Equal(t, domain.StatusReReading, entries[1].Status)
	assert.Equal(t, domain.StatusReading, entries[2].Status)
}

func TestList_EmptyForUnknownBook(t *testing.T) {
	svc, _, cleanup := setupTestHistory(t)
	defer cleanup()

	assert.Empty(t, svc.List(context.Background(), "no-such-book"))
}

func TestImportantDatesAndDuration(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	started := time.Now().Add(-10 * 24 * time.Hour).Truncate(time.Second)
	finished := started.Add(5*24*time.Hour + time.Hour)

	_, err := svc.AppendManual(ctx, "usr-A", "book-1", started, domain.StatusReading, "")
	require.NoError(t, err)
	_, err = svc.AppendManual(ctx, "usr-A", "book-1", finished, domain.StatusFinished, "")
	require.NoError(t, err)

	dates := svc.ImportantDates(ctx, "book-1")
	require.NotNil(t, dates.ReadingStartedAt)
	require.NotNil(t, dates.FinishedAt)
	assert.True(t, dates.ReadingStartedAt.Equal(started))
	assert.True(t, dates.FinishedAt.Equal(finished))

	days, ok := svc.ReadingDuration(ctx, "book-1")
	require.True(t, ok)
	assert.Equal(t, 6, days) // 5 days 1 hour rounds up

	_, ok = svc.ReadingDuration(ctx, "no-such-book")
	assert.False(t, ok)
}

func TestRecordManualEntry_BecomesMostRecent(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	date := time.Now().Add(-time.Hour)
	_, err := svc.RecordManualEntry(ctx, "usr-A", "book-1", date,
		domain.StatusFinished, domain.StatusReading, book, nil)
	require.NoError(t, err)

	updated, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, updated.Status)
	require.NotNil(t, updated.FinishedAt)
	assert.True(t, updated.FinishedAt.Equal(date))
}

func TestRecordManualEntry_NotMostRecent(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	// An existing later entry outranks the new one.
	later := domain.NewStatusHistoryEntry("hist-later", "book-1", "usr-A",
		domain.StatusFinished, domain.StatusReading, time.Now().Add(-time.Hour), true)
	require.NoError(t, s.AppendHistoryEntry(ctx, later))

	_, err := svc.RecordManualEntry(ctx, "usr-A", "book-1", time.Now().Add(-24*time.Hour),
		domain.StatusReReading, domain.StatusReading, book, []*domain.StatusHistoryEntry{later})
	require.NoError(t, err)

	updated, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, updated.Status, "older entry must not move the live status")
}

func TestRecordManualEntry_NilBook(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	entry, err := svc.RecordManualEntry(ctx, "usr-A", "book-1", time.Now().Add(-time.Hour),
		domain.StatusFinished, domain.StatusReading, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, entry)

	// The entry landed but the book was left alone.
	assert.Len(t, svc.List(ctx, "book-1"), 1)
	book, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, book.Status)
}

func TestRecordManualEntry_SameStatusNoop(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)
	firstUpdate := book.UpdatedAt

	_, err := svc.RecordManualEntry(ctx, "usr-A", "book-1", time.Now().Add(-time.Hour),
		domain.StatusReading, domain.StatusTsundoku, book, nil)
	require.NoError(t, err)

	updated, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, updated.Status)
	assert.True(t, updated.UpdatedAt.Equal(firstUpdate), "book must not be rewritten when status already matches")
}

func TestRecordManualEntry_ValidationFailurePropagates(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook(t, s, "book-1", "usr-A", domain.StatusReading)

	_, err := svc.RecordManualEntry(ctx, "usr-A", "book-1", time.Now().Add(time.Hour),
		domain.StatusFinished, domain.StatusReading, book, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// Neither the log nor the book changed.
	assert.Empty(t, svc.List(ctx, "book-1"))
	updated, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, updated.Status)
}

func TestRecordManual_LoadsBookAndHistory(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	_, err := svc.RecordManual(ctx, "usr-A", "book-1", time.Now().Add(-time.Hour),
		domain.StatusReading, domain.StatusTsundoku)
	require.NoError(t, err)

	book, err := s.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, book.Status)
}

func TestRecordManual_WrongUser(t *testing.T) {
	svc, s, cleanup := setupTestHistory(t)
	defer cleanup()

	ctx := context.Background()
	createTestBook(t, s, "book-1", "usr-A", domain.StatusTsundoku)

	_, err := svc.RecordManual(ctx, "usr-B", "book-1", time.Now().Add(-time.Hour),
		domain.StatusReading, domain.StatusTsundoku)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrForbidden)
}
