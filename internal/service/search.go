package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nistake0/bookmemo-server/internal/search"
	"github.com/nistake0/bookmemo-server/internal/store"
)

// SearchService runs full-text queries over the caller's books and memos and
// can rebuild the index from the store.
type SearchService struct {
	index  *search.Index
	store  *store.Store
	logger *slog.Logger
}

// NewSearchService creates a search service.
func NewSearchService(index *search.Index, store *store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a query scoped to the caller. The user ID on the params is
// overwritten so a crafted request cannot read another user's library.
func (s *SearchService) Search(ctx context.Context, userID string, params search.Params) (*search.Result, error) {
	params.UserID = userID
	return s.index.Search(ctx, params)
}

// RebuildIndex drops the index and reindexes every book and memo in the
// store. Used at startup after a mapping change and by the admin endpoint.
func (s *SearchService) RebuildIndex(ctx context.Context) (int, error) {
	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	books, err := s.store.ListAllBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}

	docs := make([]*search.Document, 0, len(books))
	for _, book := range books {
		docs = append(docs, search.BookDocument(book))

		memos, err := s.store.ListMemosForBook(ctx, book.ID)
		if err != nil {
			s.logger.Warn("Skipping memos of unreadable book", "book_id", book.ID, "error", err)
			continue
		}
		for _, memo := range memos {
			docs = append(docs, search.MemoDocument(memo))
		}
	}

	if err := s.index.IndexDocuments(docs); err != nil {
		return 0, fmt.Errorf("index documents: %w", err)
	}

	s.logger.Info("Search index rebuilt", "documents", len(docs))
	return len(docs), nil
}
