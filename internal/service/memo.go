package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/id"
	"github.com/nistake0/bookmemo-server/internal/normalize"
	"github.com/nistake0/bookmemo-server/internal/store"
)

// MemoService manages reading memos attached to books.
type MemoService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewMemoService creates a memo service.
func NewMemoService(store *store.Store, logger *slog.Logger) *MemoService {
	return &MemoService{
		store:  store,
		logger: logger,
	}
}

// CreateMemoRequest adds a memo to one of the caller's books.
type CreateMemoRequest struct {
	BookID  string   `json:"book_id" validate:"required"`
	Text    string   `json:"text" validate:"required,max=10000"`
	Comment string   `json:"comment" validate:"omitempty,max=10000"`
	Rating  int      `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Page    int      `json:"page" validate:"omitempty,gte=0"`
	Tags    []string `json:"tags" validate:"omitempty,dive,max=50"`
}

// CreateMemo validates and stores a new memo. The book must exist and belong
// to the caller.
func (s *MemoService) CreateMemo(ctx context.Context, userID string, req CreateMemoRequest) (*domain.Memo, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.store.GetBookForUser(ctx, req.BookID, userID); err != nil {
		return nil, err
	}

	memoID, err := id.Generate("memo")
	if err != nil {
		return nil, err
	}

	memo := domain.NewMemo(memoID, req.BookID, userID, req.Text)
	memo.Comment = req.Comment
	memo.Rating = req.Rating
	memo.Page = req.Page
	memo.Tags = normalizeTags(req.Tags)

	if err := s.store.CreateMemo(ctx, memo); err != nil {
		return nil, err
	}

	s.refreshMemoCount(ctx, req.BookID)
	return memo, nil
}

// GetMemo returns one of the caller's memos.
func (s *MemoService) GetMemo(ctx context.Context, userID, memoID string) (*domain.Memo, error) {
	memo, err := s.store.GetMemo(ctx, memoID)
	if err != nil {
		return nil, err
	}
	if memo.UserID != userID {
		return nil, store.ErrForbidden.WithMessage("memo belongs to another user")
	}
	return memo, nil
}

// UpdateMemoRequest edits a memo. Nil pointers leave the field untouched.
type UpdateMemoRequest struct {
	Text    *string   `json:"text" validate:"omitempty,min=1,max=10000"`
	Comment *string   `json:"comment" validate:"omitempty,max=10000"`
	Rating  *int      `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Page    *int      `json:"page" validate:"omitempty,gte=0"`
	Tags    *[]string `json:"tags" validate:"omitempty,dive,max=50"`
}

// UpdateMemo applies a partial edit to one of the caller's memos.
func (s *MemoService) UpdateMemo(ctx context.Context, userID, memoID string, req UpdateMemoRequest) (*domain.Memo, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	memo, err := s.GetMemo(ctx, userID, memoID)
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		memo.Text = *req.Text
	}
	if req.Comment != nil {
		memo.Comment = *req.Comment
	}
	if req.Rating != nil {
		memo.Rating = *req.Rating
	}
	if req.Page != nil {
		memo.Page = *req.Page
	}
	if req.Tags != nil {
		memo.Tags = normalizeTags(*req.Tags)
	}

	if err := s.store.UpdateMemo(ctx, memo); err != nil {
		return nil, err
	}
	return memo, nil
}

// DeleteMemo removes one of the caller's memos.
func (s *MemoService) DeleteMemo(ctx context.Context, userID, memoID string) error {
	memo, err := s.GetMemo(ctx, userID, memoID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMemo(ctx, memoID); err != nil {
		return err
	}

	s.refreshMemoCount(ctx, memo.BookID)
	return nil
}

// ListMemosForBook returns a book's memos newest first.
func (s *MemoService) ListMemosForBook(ctx context.Context, userID, bookID string) ([]*domain.Memo, error) {
	if _, err := s.store.GetBookForUser(ctx, bookID, userID); err != nil {
		return nil, err
	}

	memos, err := s.store.ListMemosForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	sortMemosDesc(memos)
	return memos, nil
}

// ListMemos returns all the caller's memos newest first.
func (s *MemoService) ListMemos(ctx context.Context, userID string) ([]*domain.Memo, error) {
	memos, err := s.store.ListMemosForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortMemosDesc(memos)
	return memos, nil
}

// TagCount is one tag with its usage count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ListTags aggregates the caller's memo tags, most used first.
func (s *MemoService) ListTags(ctx context.Context, userID string) ([]TagCount, error) {
	memos, err := s.store.ListMemosForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, memo := range memos {
		for _, tag := range memo.Tags {
			counts[tag]++
		}
	}

	tags := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	return tags, nil
}

// refreshMemoCount recomputes the denormalized memo count on the book.
// Best effort, the count is display-only.
func (s *MemoService) refreshMemoCount(ctx context.Context, bookID string) {
	count, err := s.store.CountMemosForBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("Failed to count memos", "book_id", bookID, "error", err)
		return
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("Failed to load book for memo count", "book_id", bookID, "error", err)
		return
	}
	if book.MemoCount == count {
		return
	}

	book.MemoCount = count
	if err := s.store.UpdateBook(ctx, book); err != nil {
		s.logger.Warn("Failed to update memo count", "book_id", bookID, "error", err)
	}
}

func sortMemosDesc(memos []*domain.Memo) {
	sort.SliceStable(memos, func(i, j int) bool {
		return memos[i].CreatedAt.After(memos[j].CreatedAt)
	})
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := normalize.Tag(tag)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
