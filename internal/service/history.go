package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nistake0/bookmemo-server/internal/domain"
	domainerrors "github.com/nistake0/bookmemo-server/internal/errors"
	"github.com/nistake0/bookmemo-server/internal/id"
	"github.com/nistake0/bookmemo-server/internal/store"
)

// StatusHistoryService maintains each book's append-only status log and
// decides when a manually inserted entry should also become the book's live
// status.
type StatusHistoryService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewStatusHistoryService creates a status history service.
func NewStatusHistoryService(store *store.Store, logger *slog.Logger) *StatusHistoryService {
	return &StatusHistoryService{
		store:  store,
		logger: logger,
	}
}

// Append records an automatic status transition with a server-assigned
// timestamp. The caller is responsible for having verified book ownership.
func (s *StatusHistoryService) Append(
	ctx context.Context,
	userID, bookID string,
	status, previous domain.ReadingStatus,
	notes string,
) (*domain.StatusHistoryEntry, error) {
	if !status.IsValid() {
		return nil, domainerrors.Validationf("invalid status %q", status)
	}

	entryID, err := id.Generate("hist")
	if err != nil {
		return nil, fmt.Errorf("generate history ID: %w", err)
	}

	entry := domain.NewStatusHistoryEntry(entryID, bookID, userID, status, previous, time.Now(), false)
	entry.Notes = notes

	if err := s.store.AppendHistoryEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history entry: %w", err)
	}
	return entry, nil
}

// AppendManual records a status change at a caller-supplied past instant.
// All validation happens before any write: the status must parse, the date
// must not be in the future, and no existing entry for the book may sit
// within the duplicate window of the date.
func (s *StatusHistoryService) AppendManual(
	ctx context.Context,
	userID, bookID string,
	date time.Time,
	status, previous domain.ReadingStatus,
) (*domain.StatusHistoryEntry, error) {
	if !status.IsValid() {
		return nil, domainerrors.Validationf("invalid status %q", status)
	}
	if date.After(time.Now()) {
		return nil, domainerrors.Validation("date must not be in the future")
	}

	existing, err := s.store.ListHistoryForBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list history for duplicate check: %w", err)
	}
	if domain.HasNearbyEntry(existing, date) {
		return nil, domainerrors.Conflictf("an entry within %s of this date already exists", domain.DuplicateWindow)
	}

	entryID, err := id.Generate("hist")
	if err != nil {
		return nil, fmt.Errorf("generate history ID: %w", err)
	}

	entry := domain.NewStatusHistoryEntry(entryID, bookID, userID, status, previous, date, true)

	if err := s.store.AppendHistoryEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history entry: %w", err)
	}
	return entry, nil
}

// List returns a book's history sorted most-recent first. A read failure
// degrades to an empty history instead of an error: books created before the
// history feature existed must keep working without a log.
func (s *StatusHistoryService) List(ctx context.Context, bookID string) []*domain.StatusHistoryEntry {
	entries, err := s.store.ListHistoryForBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("Failed to read status history, treating as empty",
			"book_id", bookID, "error", err)
		return nil
	}
	domain.SortHistoryDesc(entries)
	return entries
}

// ImportantDates derives the milestone dates from a book's history.
func (s *StatusHistoryService) ImportantDates(ctx context.Context, bookID string) domain.ImportantDates {
	return domain.ExtractImportantDates(s.List(ctx, bookID))
}

// ReadingDuration returns the book's reading duration in whole days, or
// false when it has not been both started and finished.
func (s *StatusHistoryService) ReadingDuration(ctx context.Context, bookID string) (int, bool) {
	return s.ImportantDates(ctx, bookID).ReadingDurationDays()
}

// RecordManualEntry appends a manual history entry and, when that entry turns
// out to be the most recent one for the book, also moves the book's live
// status to match. Passing a nil book skips the status-update step, for
// callers that only want the log entry.
//
// The append happens first; if it fails nothing else is attempted. The status
// update is a second independent write, so a crash between the two leaves the
// log correct and the status stale, which the next entry repairs.
func (s *StatusHistoryService) RecordManualEntry(
	ctx context.Context,
	userID, bookID string,
	date time.Time,
	status, previous domain.ReadingStatus,
	book *domain.Book,
	existing []*domain.StatusHistoryEntry,
) (*domain.StatusHistoryEntry, error) {
	entry, err := s.AppendManual(ctx, userID, bookID, date, status, previous)
	if err != nil {
		return nil, err
	}

	if book == nil {
		return entry, nil
	}

	candidates := make([]*domain.StatusHistoryEntry, 0, len(existing)+1)
	candidates = append(candidates, existing...)
	candidates = append(candidates, entry)
	domain.SortHistoryDesc(candidates)

	if candidates[0] != entry || status == book.Status {
		return entry, nil
	}

	if _, err := s.store.UpdateBookStatus(ctx, bookID, status, entry.ChangedAt); err != nil {
		return nil, fmt.Errorf("update book status: %w", err)
	}

	s.logger.Info("Manual entry became most recent, book status updated",
		"book_id", bookID, "status", status)
	return entry, nil
}

// RecordManual is the HTTP-facing wrapper around RecordManualEntry: it loads
// the caller's book and its current history before applying the rule.
func (s *StatusHistoryService) RecordManual(
	ctx context.Context,
	userID, bookID string,
	date time.Time,
	status, previous domain.ReadingStatus,
) (*domain.StatusHistoryEntry, error) {
	book, err := s.store.GetBookForUser(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}
	existing := s.List(ctx, bookID)
	return s.RecordManualEntry(ctx, userID, bookID, date, status, previous, book, existing)
}
