// Package calibre imports books from a Calibre library's metadata.db into a
// user's BookMemo library. The import is one-shot and idempotent: books
// carry their Calibre UUID as a source reference, so rerunning the import
// skips everything already brought in.
package calibre

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Parser errors.
var (
	ErrNotCalibreLibrary = errors.New("not a calibre metadata database")
)

// Book is one book row from a Calibre library with its linked metadata.
type Book struct {
	CalibreID   int64
	UUID        string
	Title       string
	Authors     []string
	Publisher   string
	PublishYear string
	ISBN        string
	Description string
	Tags        []string
	AddedAt     time.Time
}

// Library holds the parsed contents of a metadata.db.
type Library struct {
	Path  string
	Books []Book

	// InvalidUUIDs counts rows whose uuid column did not parse. They are
	// dropped, since without a stable identity the import cannot dedupe.
	InvalidUUIDs int
}

// Parse reads a Calibre metadata.db and extracts every book with its
// authors, publisher, tags, description and identifiers.
func Parse(path string, logger *slog.Logger) (*Library, error) {
	start := time.Now()
	logger.Info("Parsing Calibre library", "path", path)

	// modernc.org/sqlite is pure Go, no CGO. mode=ro keeps the user's
	// library untouched even if something goes wrong mid-read.
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lib := &Library{Path: path}

	books, err := parseBooks(db, lib)
	if err != nil {
		return nil, fmt.Errorf("parse books: %w", err)
	}

	if err := parseAuthors(db, books); err != nil {
		return nil, fmt.Errorf("parse authors: %w", err)
	}
	if err := parsePublishers(db, books); err != nil {
		return nil, fmt.Errorf("parse publishers: %w", err)
	}
	if err := parseTags(db, books); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	if err := parseComments(db, books); err != nil {
		return nil, fmt.Errorf("parse comments: %w", err)
	}
	if err := parseIdentifiers(db, books); err != nil {
		return nil, fmt.Errorf("parse identifiers: %w", err)
	}

	for _, b := range books {
		lib.Books = append(lib.Books, *b)
	}

	logger.Info("Calibre library parsed",
		"books", len(lib.Books),
		"invalid_uuids", lib.InvalidUUIDs,
		"duration", time.Since(start),
	)
	return lib, nil
}

// parseBooks reads the base books table. Returns the books keyed by Calibre
// row ID so the link-table passes can attach their data.
func parseBooks(db *sql.DB, lib *Library) (map[int64]*Book, error) {
	rows, err := db.Query(`
		SELECT id, COALESCE(uuid, ''), COALESCE(title, ''),
		       COALESCE(isbn, ''), COALESCE(timestamp, ''), COALESCE(pubdate, '')
		FROM books
	`)
	if err != nil {
		// A database without a books table is not a Calibre library.
		return nil, fmt.Errorf("%w: %v", ErrNotCalibreLibrary, err)
	}
	defer rows.Close()

	books := make(map[int64]*Book)
	for rows.Next() {
		var b Book
		var rawUUID, timestamp, pubdate string
		if err := rows.Scan(&b.CalibreID, &rawUUID, &b.Title, &b.ISBN, &timestamp, &pubdate); err != nil {
			return nil, err
		}

		// The UUID is the book's stable identity across imports.
		parsed, err := uuid.Parse(rawUUID)
		if err != nil {
			lib.InvalidUUIDs++
			continue
		}
		b.UUID = parsed.String()

		b.AddedAt = parseCalibreTime(timestamp)
		b.PublishYear = publishYearOf(pubdate)

		books[b.CalibreID] = &b
	}
	return books, rows.Err()
}

func parseAuthors(db *sql.DB, books map[int64]*Book) error {
	rows, err := db.Query(`
		SELECT l.book, a.name
		FROM books_authors_link l
		JOIN authors a ON a.id = l.author
		ORDER BY l.id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var name string
		if err := rows.Scan(&bookID, &name); err != nil {
			return err
		}
		if b, ok := books[bookID]; ok && name != "" {
			// Calibre stores "Last, First" with a pipe in older libraries.
			b.Authors = append(b.Authors, strings.ReplaceAll(name, "|", ","))
		}
	}
	return rows.Err()
}

func parsePublishers(db *sql.DB, books map[int64]*Book) error {
	rows, err := db.Query(`
		SELECT l.book, p.name
		FROM books_publishers_link l
		JOIN publishers p ON p.id = l.publisher
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var name string
		if err := rows.Scan(&bookID, &name); err != nil {
			return err
		}
		if b, ok := books[bookID]; ok {
			b.Publisher = name
		}
	}
	return rows.Err()
}

func parseTags(db *sql.DB, books map[int64]*Book) error {
	rows, err := db.Query(`
		SELECT l.book, t.name
		FROM books_tags_link l
		JOIN tags t ON t.id = l.tag
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var name string
		if err := rows.Scan(&bookID, &name); err != nil {
			return err
		}
		if b, ok := books[bookID]; ok && name != "" {
			b.Tags = append(b.Tags, name)
		}
	}
	return rows.Err()
}

func parseComments(db *sql.DB, books map[int64]*Book) error {
	rows, err := db.Query(`SELECT book, COALESCE(text, '') FROM comments`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var text string
		if err := rows.Scan(&bookID, &text); err != nil {
			return err
		}
		if b, ok := books[bookID]; ok {
			b.Description = stripHTML(text)
		}
	}
	return rows.Err()
}

// parseIdentifiers fills in ISBNs from the identifiers table. Calibre leaves
// books.isbn empty in most libraries and keeps the real value here.
func parseIdentifiers(db *sql.DB, books map[int64]*Book) error {
	rows, err := db.Query(`SELECT book, val FROM identifiers WHERE type = 'isbn'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var val string
		if err := rows.Scan(&bookID, &val); err != nil {
			return err
		}
		if b, ok := books[bookID]; ok && b.ISBN == "" {
			b.ISBN = val
		}
	}
	return rows.Err()
}

// calibreTimeLayouts covers the timestamp formats seen across Calibre
// versions.
var calibreTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseCalibreTime(s string) time.Time {
	for _, layout := range calibreTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// publishYearOf extracts the year from a pubdate column. Calibre uses year
// 101 as its "unknown" placeholder, which is dropped.
func publishYearOf(pubdate string) string {
	t := parseCalibreTime(pubdate)
	if t.IsZero() || t.Year() < 1000 {
		return ""
	}
	return fmt.Sprintf("%04d", t.Year())
}

// stripHTML removes markup from Calibre's HTML comments, leaving plain text.
func stripHTML(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
