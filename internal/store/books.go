package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/sse"
)

const (
	bookPrefix       = "book:"
	bookByUserPrefix = "idx:books:user:" // idx:books:user:<userID>:<bookID> -> bookID
	bookByISBNPrefix = "idx:books:isbn:" // idx:books:isbn:<userID>:<isbn> -> bookID
)

// Sentinel errors for book operations.
var (
	ErrBookNotFound = ErrNotFound.WithMessage("book not found")
	ErrBookExists   = ErrAlreadyExists.WithMessage("book already exists")
	ErrISBNExists   = ErrAlreadyExists.WithMessage("a book with this ISBN is already registered")
)

// CreateBook stores a book and its indexes atomically.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(bookPrefix + book.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrBookExists
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		// Enforce per-user ISBN uniqueness when an ISBN is present.
		if book.ISBN != "" {
			isbnKey := []byte(bookByISBNPrefix + book.UserID + ":" + book.ISBN)
			if _, err := txn.Get(isbnKey); err == nil {
				return ErrISBNExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check isbn index: %w", err)
			}
			if err := txn.Set(isbnKey, []byte(book.ID)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}

		userKey := []byte(bookByUserPrefix + book.UserID + ":" + book.ID)
		return txn.Set(userKey, []byte(book.ID))
	})
	if err != nil {
		var stErr *Error
		if errors.As(err, &stErr) {
			return err
		}
		return fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("user_id", book.UserID),
			slog.String("title", book.Title),
			slog.String("status", string(book.Status)),
		)
	}

	s.emit(sse.NewBookCreatedEvent(book))
	s.indexBookAsync(book)
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := []byte(bookPrefix + id)

	var book domain.Book
	if err := s.get(key, &book); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// GetBookForUser retrieves a book by ID and verifies ownership.
// Returns ErrForbidden when the book belongs to a different user.
func (s *Store) GetBookForUser(ctx context.Context, id, userID string) (*domain.Book, error) {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.UserID != userID {
		return nil, ErrForbidden.WithMessage("book belongs to another user")
	}
	return book, nil
}

// GetBookByISBN retrieves a user's book by normalized ISBN.
func (s *Store) GetBookByISBN(ctx context.Context, userID, isbn string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	isbnKey := []byte(bookByISBNPrefix + userID + ":" + isbn)

	var bookID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(isbnKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			bookID = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("lookup book by isbn: %w", err)
	}

	return s.GetBook(ctx, bookID)
}

// BookExists checks if a book exists by ID.
func (s *Store) BookExists(_ context.Context, id string) (bool, error) {
	return s.exists([]byte(bookPrefix + id))
}

// UpdateBook updates an existing book, maintaining the ISBN index.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(bookPrefix + book.ID)

	oldBook, err := s.GetBook(ctx, book.ID)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		book.Touch()

		if oldBook.ISBN != book.ISBN {
			if oldBook.ISBN != "" {
				oldISBNKey := []byte(bookByISBNPrefix + oldBook.UserID + ":" + oldBook.ISBN)
				if err := txn.Delete(oldISBNKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}
			if book.ISBN != "" {
				newISBNKey := []byte(bookByISBNPrefix + book.UserID + ":" + book.ISBN)
				if _, err := txn.Get(newISBNKey); err == nil {
					return ErrISBNExists
				} else if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("check isbn index: %w", err)
				}
				if err := txn.Set(newISBNKey, []byte(book.ID)); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		var stErr *Error
		if errors.As(err, &stErr) {
			return err
		}
		return fmt.Errorf("update book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("book updated", "id", book.ID, "title", book.Title)
	}

	s.emit(sse.NewBookUpdatedEvent(book))
	s.indexBookAsync(book)
	return nil
}

// UpdateBookStatus sets a book's reading status and keeps FinishedAt in step.
// Returns the updated book.
func (s *Store) UpdateBookStatus(ctx context.Context, bookID string, status domain.ReadingStatus, at time.Time) (*domain.Book, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.SetStatus(status, at)
	if err := s.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook deletes a book along with its memos and status history.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	// Cascade first so a partial failure leaves the book itself intact.
	if err := s.DeleteMemosForBook(ctx, id); err != nil {
		return fmt.Errorf("delete memos for book: %w", err)
	}
	if err := s.DeleteHistoryForBook(ctx, id); err != nil {
		return fmt.Errorf("delete history for book: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(bookPrefix + id)); err != nil {
			return err
		}

		userKey := []byte(bookByUserPrefix + book.UserID + ":" + id)
		if err := txn.Delete(userKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if book.ISBN != "" {
			isbnKey := []byte(bookByISBNPrefix + book.UserID + ":" + book.ISBN)
			if err := txn.Delete(isbnKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("book deleted", "id", id, "title", book.Title)
	}

	deletedAt := time.Now()
	s.emit(sse.NewBookDeletedEvent(book.UserID, id, deletedAt))
	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteBook(context.Background(), id); err != nil && s.logger != nil {
				s.logger.Warn("failed to remove book from index", "book_id", id, "error", err)
			}
		}()
	}
	return nil
}

// ListBooksForUser returns a page of a user's books ordered by book ID.
func (s *Store) ListBooksForUser(ctx context.Context, userID string, params PaginationParams) (*PaginatedResult[*domain.Book], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	prefix := []byte(bookByUserPrefix + userID + ":")

	startKey, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, ErrInvalidInput.WithMessage("invalid cursor").WithCause(err)
	}

	var books []*domain.Book
	var hasMore bool

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = params.Limit + 1

		it := txn.NewIterator(opts)
		defer it.Close()

		if startKey != "" {
			it.Seek([]byte(startKey))
			// Skip the cursor key itself (already returned last page).
			if it.Valid() && string(it.Item().Key()) == startKey {
				it.Next()
			}
		} else {
			it.Seek(prefix)
		}

		count := 0
		for ; it.ValidForPrefix(prefix); it.Next() {
			if count == params.Limit {
				hasMore = true
				break
			}

			var bookID string
			if err := it.Item().Value(func(val []byte) error {
				bookID = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get([]byte(bookPrefix + bookID))
			if err != nil {
				continue // Skip dangling index entries
			}

			var book domain.Book
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			}); err != nil {
				continue // Skip corrupt entries
			}

			books = append(books, &book)
			count++
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	result := &PaginatedResult[*domain.Book]{
		Items:   books,
		HasMore: hasMore,
	}

	if hasMore && len(books) > 0 {
		last := books[len(books)-1]
		result.NextCursor = EncodeCursor(bookByUserPrefix + userID + ":" + last.ID)
	}

	return result, nil
}

// ListAllBooks returns every book in the store (non-paginated).
// Used for search index rebuilds.
func (s *Store) ListAllBooks(_ context.Context) ([]*domain.Book, error) {
	var books []*domain.Book

	prefix := []byte(bookPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}
				books = append(books, &book)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list all books: %w", err)
	}

	return books, nil
}

// CountBooksForUser returns the number of books a user has registered.
func (s *Store) CountBooksForUser(_ context.Context, userID string) (int, error) {
	prefix := []byte(bookByUserPrefix + userID + ":")
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}

	return count, nil
}
