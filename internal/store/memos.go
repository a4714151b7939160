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
	memoPrefix       = "memo:"
	memoByBookPrefix = "idx:memos:book:" // idx:memos:book:<bookID>:<memoID> -> memoID
	memoByUserPrefix = "idx:memos:user:" // idx:memos:user:<userID>:<memoID> -> memoID
)

// Sentinel errors for memo operations.
var (
	ErrMemoNotFound = ErrNotFound.WithMessage("memo not found")
	ErrMemoExists   = ErrAlreadyExists.WithMessage("memo already exists")
)

// CreateMemo stores a memo and its indexes atomically.
func (s *Store) CreateMemo(ctx context.Context, memo *domain.Memo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(memoPrefix + memo.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check memo exists: %w", err)
	}
	if exists {
		return ErrMemoExists
	}

	data, err := json.Marshal(memo)
	if err != nil {
		return fmt.Errorf("marshal memo: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}

		bookIdx := memoByBookPrefix + memo.BookID + ":" + memo.ID
		if err := txn.Set([]byte(bookIdx), []byte(memo.ID)); err != nil {
			return err
		}

		userIdx := memoByUserPrefix + memo.UserID + ":" + memo.ID
		return txn.Set([]byte(userIdx), []byte(memo.ID))
	})
	if err != nil {
		return fmt.Errorf("create memo: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "memo created",
			slog.String("id", memo.ID),
			slog.String("book_id", memo.BookID),
		)
	}

	s.emit(sse.NewMemoCreatedEvent(memo))
	s.indexMemoAsync(memo)
	return nil
}

// GetMemo retrieves a memo by ID.
func (s *Store) GetMemo(ctx context.Context, id string) (*domain.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var memo domain.Memo
	if err := s.get([]byte(memoPrefix+id), &memo); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrMemoNotFound
		}
		return nil, fmt.Errorf("get memo: %w", err)
	}
	return &memo, nil
}

// UpdateMemo updates an existing memo.
func (s *Store) UpdateMemo(ctx context.Context, memo *domain.Memo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(memoPrefix + memo.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check memo exists: %w", err)
	}
	if !exists {
		return ErrMemoNotFound
	}

	memo.Touch()
	if err := s.set(key, memo); err != nil {
		return fmt.Errorf("update memo: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("memo updated", "id", memo.ID, "book_id", memo.BookID)
	}

	s.emit(sse.NewMemoUpdatedEvent(memo))
	s.indexMemoAsync(memo)
	return nil
}

// DeleteMemo deletes a memo and its indexes.
func (s *Store) DeleteMemo(ctx context.Context, id string) error {
	memo, err := s.GetMemo(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(memoPrefix + id)); err != nil {
			return err
		}

		bookIdx := memoByBookPrefix + memo.BookID + ":" + id
		if err := txn.Delete([]byte(bookIdx)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		userIdx := memoByUserPrefix + memo.UserID + ":" + id
		if err := txn.Delete([]byte(userIdx)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete memo: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("memo deleted", "id", id, "book_id", memo.BookID)
	}

	s.emit(sse.NewMemoDeletedEvent(memo.UserID, id, memo.BookID, time.Now()))
	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteMemo(context.Background(), id); err != nil && s.logger != nil {
				s.logger.Warn("failed to remove memo from index", "memo_id", id, "error", err)
			}
		}()
	}
	return nil
}

// ListMemosForBook retrieves all memos attached to a book.
func (s *Store) ListMemosForBook(ctx context.Context, bookID string) ([]*domain.Memo, error) {
	return s.getMemosByPrefix(ctx, memoByBookPrefix+bookID+":")
}

// ListMemosForUser retrieves all memos written by a user.
func (s *Store) ListMemosForUser(ctx context.Context, userID string) ([]*domain.Memo, error) {
	return s.getMemosByPrefix(ctx, memoByUserPrefix+userID+":")
}

// getMemosByPrefix retrieves memos matching an index prefix.
func (s *Store) getMemosByPrefix(ctx context.Context, prefix string) ([]*domain.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var memos []*domain.Memo

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		var memoIDs []string
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				memoIDs = append(memoIDs, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}

		memos = make([]*domain.Memo, 0, len(memoIDs))
		for _, id := range memoIDs {
			item, err := txn.Get([]byte(memoPrefix + id))
			if err != nil {
				continue // Skip missing memos
			}

			var memo domain.Memo
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &memo)
			}); err != nil {
				continue // Skip corrupt memos
			}
			memos = append(memos, &memo)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return memos, nil
}

// DeleteMemosForBook removes every memo for a book.
// Used when a book is deleted.
func (s *Store) DeleteMemosForBook(ctx context.Context, bookID string) error {
	memos, err := s.ListMemosForBook(ctx, bookID)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, memo := range memos {
			if err := txn.Delete([]byte(memoPrefix + memo.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			bookIdx := memoByBookPrefix + bookID + ":" + memo.ID
			if err := txn.Delete([]byte(bookIdx)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			userIdx := memoByUserPrefix + memo.UserID + ":" + memo.ID
			if err := txn.Delete([]byte(userIdx)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// CountMemosForBook returns the number of memos attached to a book.
func (s *Store) CountMemosForBook(_ context.Context, bookID string) (int, error) {
	prefix := []byte(memoByBookPrefix + bookID + ":")
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
		return 0, fmt.Errorf("count memos: %w", err)
	}

	return count, nil
}
