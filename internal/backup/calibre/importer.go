package calibre

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/id"
	"github.com/nistake0/bookmemo-server/internal/normalize"
	"github.com/nistake0/bookmemo-server/internal/store"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported int
	Skipped  int
	Failed   int
	Errors   []string
	Duration time.Duration
}

// Importer brings parsed Calibre books into a user's library.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
}

// NewImporter creates an importer writing through the given store.
func NewImporter(st *store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{store: st, logger: logger}
}

// Import adds every book in the library to the user's collection with status
// tsundoku. Books whose Calibre UUID already appears as a source reference
// are skipped, so rerunning the import against a grown library only adds the
// new books.
func (i *Importer) Import(ctx context.Context, lib *Library, userID string) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{}

	existing, err := i.existingSourceRefs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list existing books: %w", err)
	}

	i.logger.Info("Starting Calibre import",
		"user_id", userID,
		"books", len(lib.Books),
		"already_imported", len(existing),
	)

	for _, cb := range lib.Books {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if existing[cb.UUID] {
			result.Skipped++
			continue
		}
		if cb.Title == "" {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("calibre book %d: no title", cb.CalibreID))
			continue
		}

		book, err := i.toBook(cb, userID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", cb.Title, err))
			continue
		}

		if err := i.store.CreateBook(ctx, book); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", cb.Title, err))
			i.logger.Warn("Failed to import book", "title", cb.Title, "error", err)
			continue
		}

		// Record where the tsundoku status came from. A failure here leaves
		// the book without its initial history entry but the book itself is
		// in, so the run keeps going.
		if err := i.appendInitialHistory(ctx, book, cb.AddedAt); err != nil {
			i.logger.Warn("Failed to record import history", "book_id", book.ID, "error", err)
		}

		existing[cb.UUID] = true
		result.Imported++
	}

	result.Duration = time.Since(start)
	i.logger.Info("Calibre import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

// existingSourceRefs collects the Calibre UUIDs of books the user already
// imported.
func (i *Importer) existingSourceRefs(ctx context.Context, userID string) (map[string]bool, error) {
	refs := make(map[string]bool)

	params := store.DefaultPaginationParams()
	for {
		page, err := i.store.ListBooksForUser(ctx, userID, params)
		if err != nil {
			return nil, err
		}
		for _, b := range page.Items {
			if b.SourceRef != "" {
				refs[b.SourceRef] = true
			}
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	return refs, nil
}

// toBook converts a parsed Calibre book to a library book owned by the user.
// Imported books start as tsundoku regardless of any reading state Calibre
// may track in custom columns.
func (i *Importer) toBook(cb Book, userID string) (*domain.Book, error) {
	bookID, err := id.Generate("book")
	if err != nil {
		return nil, err
	}

	isbn := normalize.ISBN(cb.ISBN)
	if isbn != "" && !normalize.IsValidISBN(isbn) {
		// A malformed ISBN is not worth failing the book over.
		i.logger.Debug("Dropping invalid ISBN", "title", cb.Title, "isbn", cb.ISBN)
		isbn = ""
	}

	book := &domain.Book{
		UserID:      userID,
		ISBN:        isbn,
		Title:       normalize.Title(cb.Title),
		Authors:     cb.Authors,
		Publisher:   cb.Publisher,
		PublishYear: cb.PublishYear,
		Description: cb.Description,
		Tags:        cb.Tags,
		Status:      domain.StatusTsundoku,
		SourceRef:   cb.UUID,
	}
	book.ID = bookID
	book.InitTimestamps()
	return book, nil
}

func (i *Importer) appendInitialHistory(ctx context.Context, book *domain.Book, addedAt time.Time) error {
	entryID, err := id.Generate("hist")
	if err != nil {
		return err
	}

	changedAt := addedAt
	if changedAt.IsZero() {
		changedAt = book.CreatedAt
	}

	entry := domain.NewStatusHistoryEntry(entryID, book.ID, book.UserID,
		domain.StatusTsundoku, "", changedAt, false)
	return i.store.AppendHistoryEntry(ctx, entry)
}
