package calibre

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/store"
)

// writeFixtureLibrary builds a minimal but realistic metadata.db on disk with
// the tables the parser reads.
func writeFixtureLibrary(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metadata.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE books (
			id INTEGER PRIMARY KEY,
			uuid TEXT, title TEXT, isbn TEXT, timestamp TEXT, pubdate TEXT
		)`,
		`CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE books_authors_link (id INTEGER PRIMARY KEY, book INTEGER, author INTEGER)`,
		`CREATE TABLE publishers (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE books_publishers_link (id INTEGER PRIMARY KEY, book INTEGER, publisher INTEGER)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE books_tags_link (id INTEGER PRIMARY KEY, book INTEGER, tag INTEGER)`,
		`CREATE TABLE comments (id INTEGER PRIMARY KEY, book INTEGER, text TEXT)`,
		`CREATE TABLE identifiers (id INTEGER PRIMARY KEY, book INTEGER, type TEXT, val TEXT)`,

		`INSERT INTO books VALUES
			(1, '0a1b2c3d-0000-4000-8000-000000000001', '坊っちゃん', '',
			 '2024-03-10 09:15:00+09:00', '1906-04-01 00:00:00+00:00'),
			(2, '0a1b2c3d-0000-4000-8000-000000000002', '銀河鉄道の夜', '',
			 '2024-05-02 21:40:11.123456+09:00', '0101-01-01 00:00:00+00:00'),
			(3, 'not-a-uuid', '壊れた本', '', '2024-01-01 00:00:00', '')`,
		`INSERT INTO authors VALUES (1, '夏目漱石'), (2, '宮沢賢治')`,
		`INSERT INTO books_authors_link VALUES (1, 1, 1), (2, 2, 2)`,
		`INSERT INTO publishers VALUES (1, '新潮社')`,
		`INSERT INTO books_publishers_link VALUES (1, 1, 1)`,
		`INSERT INTO tags VALUES (1, '日本文学'), (2, '児童文学')`,
		`INSERT INTO books_tags_link VALUES (1, 1, 1), (2, 2, 1), (3, 2, 2)`,
		`INSERT INTO comments VALUES (1, 1, '<p>親譲りの<b>無鉄砲</b>で小供の時から損ばかりしている。</p>')`,
		`INSERT INTO identifiers VALUES (1, 1, 'isbn', '9784101010014'), (2, 2, 'amazon', 'B000XXXX')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestParse(t *testing.T) {
	path := writeFixtureLibrary(t)

	lib, err := Parse(path, newTestLogger())
	require.NoError(t, err)

	require.Len(t, lib.Books, 2)
	assert.Equal(t, 1, lib.InvalidUUIDs)

	byTitle := make(map[string]Book)
	for _, b := range lib.Books {
		byTitle[b.Title] = b
	}

	botchan, ok := byTitle["坊っちゃん"]
	require.True(t, ok)
	assert.Equal(t, "0a1b2c3d-0000-4000-8000-000000000001", botchan.UUID)
	assert.Equal(t, []string{"夏目漱石"}, botchan.Authors)
	assert.Equal(t, "新潮社", botchan.Publisher)
	assert.Equal(t, "1906", botchan.PublishYear)
	assert.Equal(t, "9784101010014", botchan.ISBN)
	assert.Equal(t, []string{"日本文学"}, botchan.Tags)
	assert.Equal(t, "親譲りの無鉄砲で小供の時から損ばかりしている。", botchan.Description)
	assert.Equal(t, 2024, botchan.AddedAt.Year())

	ginga, ok := byTitle["銀河鉄道の夜"]
	require.True(t, ok)
	// Calibre's year-101 placeholder means unknown.
	assert.Empty(t, ginga.PublishYear)
	// The amazon identifier is not an ISBN.
	assert.Empty(t, ginga.ISBN)
	assert.ElementsMatch(t, []string{"日本文学", "児童文学"}, ginga.Tags)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.db"), newTestLogger())
	require.Error(t, err)
}

func TestParseNotCalibre(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE unrelated (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Parse(path, newTestLogger())
	require.ErrorIs(t, err, ErrNotCalibreLibrary)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "db"), newTestLogger(), store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	path := writeFixtureLibrary(t)

	lib, err := Parse(path, newTestLogger())
	require.NoError(t, err)

	importer := NewImporter(st, newTestLogger())
	result, err := importer.Import(ctx, lib, "usr-test")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)

	page, err := st.ListBooksForUser(ctx, "usr-test", store.DefaultPaginationParams())
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	for _, b := range page.Items {
		assert.Equal(t, domain.StatusTsundoku, b.Status)
		assert.NotEmpty(t, b.SourceRef)

		history, err := st.ListHistoryForBook(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, domain.StatusTsundoku, history[0].Status)
		assert.False(t, history[0].Manual)
		// ChangedAt comes from the Calibre timestamp, not the import time.
		assert.Equal(t, 2024, history[0].ChangedAt.Year())
		assert.True(t, history[0].ChangedAt.Before(time.Now().Add(-time.Hour)))
	}
}

func TestImportIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	path := writeFixtureLibrary(t)

	lib, err := Parse(path, newTestLogger())
	require.NoError(t, err)

	importer := NewImporter(st, newTestLogger())
	first, err := importer.Import(ctx, lib, "usr-test")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := importer.Import(ctx, lib, "usr-test")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)

	page, err := st.ListBooksForUser(ctx, "usr-test", store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestImportOtherUserUnaffected(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	path := writeFixtureLibrary(t)

	lib, err := Parse(path, newTestLogger())
	require.NoError(t, err)

	importer := NewImporter(st, newTestLogger())
	_, err = importer.Import(ctx, lib, "usr-a")
	require.NoError(t, err)

	// The dedupe is per user, so a second user gets their own copies.
	result, err := importer.Import(ctx, lib, "usr-b")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
}
