package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/sse"
)

const (
	historyPrefix       = "hist:"
	historyByBookPrefix = "idx:hist:book:" // idx:hist:book:<bookID>:<entryID> -> entryID
	historyByUserPrefix = "idx:hist:user:" // idx:hist:user:<userID>:<entryID> -> entryID
)

// ErrHistoryEntryNotFound is returned when a status history entry cannot be found.
var ErrHistoryEntryNotFound = ErrNotFound.WithMessage("status history entry not found")

// AppendHistoryEntry stores a status history entry and its indexes atomically.
// Entries are immutable - no Update method exists.
func (s *Store) AppendHistoryEntry(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		// Primary key
		if err := txn.Set([]byte(historyPrefix+entry.ID), data); err != nil {
			return fmt.Errorf("set history entry: %w", err)
		}

		// Index: by book
		bookIdx := historyByBookPrefix + entry.BookID + ":" + entry.ID
		if err := txn.Set([]byte(bookIdx), []byte(entry.ID)); err != nil {
			return fmt.Errorf("set book index: %w", err)
		}

		// Index: by user
		userIdx := historyByUserPrefix + entry.RecordedBy + ":" + entry.ID
		if err := txn.Set([]byte(userIdx), []byte(entry.ID)); err != nil {
			return fmt.Errorf("set user index: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "status history appended",
			slog.String("id", entry.ID),
			slog.String("book_id", entry.BookID),
			slog.String("status", string(entry.Status)),
			slog.Bool("manual", entry.Manual),
		)
	}

	s.emit(sse.NewStatusChangedEvent(entry))
	return nil
}

// GetHistoryEntry retrieves a status history entry by ID.
func (s *Store) GetHistoryEntry(ctx context.Context, id string) (*domain.StatusHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry domain.StatusHistoryEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(historyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrHistoryEntryNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})

	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListHistoryForBook retrieves all status history entries for a book.
// Entries are returned in insertion order; callers sort for display.
func (s *Store) ListHistoryForBook(ctx context.Context, bookID string) ([]*domain.StatusHistoryEntry, error) {
	return s.getHistoryByPrefix(ctx, historyByBookPrefix+bookID+":")
}

// ListHistoryForUser retrieves all status history entries recorded by a user.
func (s *Store) ListHistoryForUser(ctx context.Context, userID string) ([]*domain.StatusHistoryEntry, error) {
	return s.getHistoryByPrefix(ctx, historyByUserPrefix+userID+":")
}

// getHistoryByPrefix retrieves entries matching an index prefix.
// Uses a single transaction to collect IDs and fetch all entries (no N+1).
func (s *Store) getHistoryByPrefix(ctx context.Context, prefix string) ([]*domain.StatusHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []*domain.StatusHistoryEntry

	err := s.db.View(func(txn *badger.Txn) error {
		// First pass: collect entry IDs from index
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		var entryIDs []string
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				entryIDs = append(entryIDs, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}

		// Second pass: batch fetch all entries in same transaction
		entries = make([]*domain.StatusHistoryEntry, 0, len(entryIDs))
		for _, id := range entryIDs {
			item, err := txn.Get([]byte(historyPrefix + id))
			if err != nil {
				continue // Skip missing entries
			}

			var entry domain.StatusHistoryEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue // Skip corrupt entries
			}
			entries = append(entries, &entry)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entries, nil
}

// DeleteHistoryForBook removes every history entry for a book.
// Used when a book is deleted.
func (s *Store) DeleteHistoryForBook(ctx context.Context, bookID string) error {
	entries, err := s.ListHistoryForBook(ctx, bookID)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, entry := range entries {
			if err := txn.Delete([]byte(historyPrefix + entry.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			bookIdx := historyByBookPrefix + bookID + ":" + entry.ID
			if err := txn.Delete([]byte(bookIdx)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			userIdx := historyByUserPrefix + entry.RecordedBy + ":" + entry.ID
			if err := txn.Delete([]byte(userIdx)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// CountHistoryForBook returns the number of history entries for a book.
func (s *Store) CountHistoryForBook(_ context.Context, bookID string) (int, error) {
	prefix := []byte(historyByBookPrefix + bookID + ":")
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
		return 0, fmt.Errorf("count history entries: %w", err)
	}

	return count, nil
}
