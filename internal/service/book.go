package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nistake0/bookmemo-server/internal/domain"
	domainerrors "github.com/nistake0/bookmemo-server/internal/errors"
	"github.com/nistake0/bookmemo-server/internal/id"
	"github.com/nistake0/bookmemo-server/internal/media/covers"
	"github.com/nistake0/bookmemo-server/internal/media/images"
	"github.com/nistake0/bookmemo-server/internal/metadata"
	"github.com/nistake0/bookmemo-server/internal/normalize"
	"github.com/nistake0/bookmemo-server/internal/store"
)

// BookService manages a user's library: book CRUD, ISBN-assisted creation,
// cover images and automatic status transitions.
type BookService struct {
	store    *store.Store
	history  *StatusHistoryService
	metadata *metadata.Resolver
	covers   *covers.Downloader
	images   *images.Processor
	logger   *slog.Logger
}

// NewBookService creates a book service. The metadata resolver and cover
// downloader are optional; without them ISBN lookup and cover fetching are
// skipped and books are created from the request payload alone.
func NewBookService(
	store *store.Store,
	history *StatusHistoryService,
	resolver *metadata.Resolver,
	downloader *covers.Downloader,
	processor *images.Processor,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:    store,
		history:  history,
		metadata: resolver,
		covers:   downloader,
		images:   processor,
		logger:   logger,
	}
}

// CreateBookRequest adds a book to the caller's library. With an ISBN and no
// title the missing bibliographic fields are resolved from the metadata
// sources; otherwise the payload is taken as-is.
type CreateBookRequest struct {
	ISBN        string   `json:"isbn" validate:"omitempty,min=10,max=17"`
	Title       string   `json:"title" validate:"omitempty,max=500"`
	Authors     []string `json:"authors" validate:"omitempty,dive,max=200"`
	Publisher   string   `json:"publisher" validate:"omitempty,max=200"`
	PublishYear string   `json:"publish_year" validate:"omitempty,len=4"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
	Status      string   `json:"status" validate:"omitempty,oneof=tsundoku reading re-reading finished"`
}

// CreateBook validates and stores a new book, records its initial status in
// the history log, and best-effort fetches a cover when the metadata lookup
// supplied one.
func (s *BookService) CreateBook(ctx context.Context, userID string, req CreateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if req.ISBN == "" && req.Title == "" {
		return nil, domainerrors.Validation("either isbn or title is required")
	}

	isbn := req.ISBN
	if isbn != "" {
		isbn = normalize.ISBN(isbn)
		if !normalize.IsValidISBN(isbn) {
			return nil, domainerrors.Validationf("invalid ISBN %q", req.ISBN)
		}
		if len(isbn) == 10 {
			isbn = normalize.ISBN10To13(isbn)
		}
	}

	status := domain.StatusTsundoku
	if req.Status != "" {
		parsed, err := domain.ParseStatus(req.Status)
		if err != nil {
			return nil, domainerrors.Validationf("invalid status %q", req.Status)
		}
		status = parsed
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	book := &domain.Book{
		UserID:      userID,
		ISBN:        isbn,
		Title:       req.Title,
		Authors:     req.Authors,
		Publisher:   req.Publisher,
		PublishYear: req.PublishYear,
		Description: req.Description,
		Tags:        req.Tags,
	}
	book.ID = bookID
	book.InitTimestamps()
	book.SetStatus(status, now)

	var coverURL string
	if book.Title == "" && s.metadata != nil {
		info, err := s.metadata.LookupISBN(ctx, isbn)
		if err != nil {
			return nil, domainerrors.NotFoundf("no metadata found for ISBN %s", isbn).WithCause(err)
		}
		book.Title = info.Title
		book.Authors = info.Authors
		book.Publisher = info.Publisher
		book.PublishYear = info.PublishYear
		book.Description = info.Description
		coverURL = info.CoverURL
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}

	// The initial status belongs in the log too. Best effort, like any
	// automatic transition.
	if _, err := s.history.Append(ctx, userID, book.ID, status, "", ""); err != nil {
		s.logger.Warn("Failed to record initial status history",
			"book_id", book.ID, "error", err)
	}

	if coverURL != "" && s.covers != nil {
		s.fetchCover(ctx, book, coverURL)
	}

	s.logger.Info("Book created", "book_id", book.ID, "title", book.Title, "user_id", userID)
	return book, nil
}

// fetchCover downloads a cover image and attaches it to the book. Failures
// are logged and the book stays usable without a cover.
func (s *BookService) fetchCover(ctx context.Context, book *domain.Book, url string) {
	result := s.covers.Download(ctx, book.ID, url)
	if !result.Success {
		s.logger.Warn("Cover download failed", "book_id", book.ID, "url", url, "error", result.Error)
		return
	}

	book.Cover = &domain.CoverInfo{
		Path:     result.Path,
		BlurHash: result.BlurHash,
		Width:    result.Width,
		Height:   result.Height,
		Size:     result.Size,
		Source:   result.Source,
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		s.logger.Warn("Failed to save cover info", "book_id", book.ID, "error", err)
	}
}

// GetBook returns one of the caller's books.
func (s *BookService) GetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	return s.store.GetBookForUser(ctx, bookID, userID)
}

// ListBooks returns a page of the caller's library.
func (s *BookService) ListBooks(ctx context.Context, userID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error) {
	return s.store.ListBooksForUser(ctx, userID, params)
}

// UpdateBookRequest edits a book's bibliographic fields. Nil pointers leave
// the field untouched; the status field is deliberately absent, status moves
// only through ChangeStatus or manual history entries.
type UpdateBookRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=500"`
	Authors     *[]string `json:"authors" validate:"omitempty,dive,max=200"`
	Publisher   *string   `json:"publisher" validate:"omitempty,max=200"`
	PublishYear *string   `json:"publish_year" validate:"omitempty,len=4"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Tags        *[]string `json:"tags" validate:"omitempty,dive,max=50"`
}

// UpdateBook applies a partial edit to one of the caller's books.
func (s *BookService) UpdateBook(ctx context.Context, userID, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	book, err := s.store.GetBookForUser(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Authors != nil {
		book.Authors = *req.Authors
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.PublishYear != nil {
		book.PublishYear = *req.PublishYear
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.Tags != nil {
		book.Tags = *req.Tags
	}

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook removes one of the caller's books together with its memos,
// history and stored cover image.
func (s *BookService) DeleteBook(ctx context.Context, userID, bookID string) error {
	book, err := s.store.GetBookForUser(ctx, bookID, userID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return err
	}

	if book.Cover != nil && s.images != nil {
		if err := s.images.Storage().Delete(bookID); err != nil {
			s.logger.Warn("Failed to delete cover file", "book_id", bookID, "error", err)
		}
	}
	return nil
}

// ChangeStatus applies an automatic status transition: the book's status
// field is updated first and is authoritative; the history append that
// follows is best effort. An append failure is logged, never surfaced, and
// the status change is not rolled back.
func (s *BookService) ChangeStatus(ctx context.Context, userID, bookID string, status domain.ReadingStatus) (*domain.Book, error) {
	if !status.IsValid() {
		return nil, domainerrors.Validationf("invalid status %q", status)
	}

	book, err := s.store.GetBookForUser(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}
	previous := book.Status

	updated, err := s.store.UpdateBookStatus(ctx, bookID, status, time.Now())
	if err != nil {
		return nil, err
	}

	if _, err := s.history.Append(ctx, userID, bookID, status, previous, ""); err != nil {
		s.logger.Warn("Status updated but history append failed",
			"book_id", bookID, "status", status, "error", err)
	}

	return updated, nil
}

// UploadCover stores a user-supplied cover image for a book.
func (s *BookService) UploadCover(ctx context.Context, userID, bookID string, data []byte) (*domain.Book, error) {
	if s.images == nil {
		return nil, domainerrors.Internal("cover storage is not configured")
	}

	book, err := s.store.GetBookForUser(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	info, err := s.images.Process(bookID, data)
	if err != nil {
		return nil, domainerrors.Validation("unsupported or corrupt image").WithCause(err)
	}

	book.Cover = &domain.CoverInfo{
		Path:     info.Path,
		BlurHash: info.BlurHash,
		Width:    info.Width,
		Height:   info.Height,
		Size:     info.Size,
		Source:   "upload",
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}
