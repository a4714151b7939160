package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nistake0/bookmemo-server/internal/domain"
)

func (s *Server) registerHistoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-book-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/history",
		Summary:     "Status history",
		Description: "Returns the book's status change log, most recent first.",
		Tags:        []string{"History"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBookHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "record-manual-history",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/history",
		Summary:     "Record a past status change",
		Description: "Inserts a backdated status change. When it turns out to be the most recent entry the book's live status follows it.",
		Tags:        []string{"History"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecordManualHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-book-dates",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/history/dates",
		Summary:     "Milestone dates",
		Description: "Returns the book's first-read, re-read and finished dates plus its reading duration in days.",
		Tags:        []string{"History"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBookDates)
}

// === DTOs ===

// HistoryListOutput wraps a book's status history for Huma.
type HistoryListOutput struct {
	Body struct {
		Entries []*domain.StatusHistoryEntry `json:"entries" doc:"History entries, most recent first"`
	}
}

// ManualHistoryBody is the request body for a backdated status change.
type ManualHistoryBody struct {
	Status         string    `json:"status" validate:"required,oneof=tsundoku reading re-reading finished" doc:"Status the book entered"`
	PreviousStatus string    `json:"previous_status,omitempty" validate:"omitempty,oneof=tsundoku reading re-reading finished" doc:"Status the book left, if known"`
	ChangedAt      time.Time `json:"changed_at" validate:"required" doc:"When the change happened. Must not be in the future."`
}

// ManualHistoryInput wraps the manual history request for Huma.
type ManualHistoryInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body ManualHistoryBody
}

// HistoryEntryOutput wraps a single history entry for Huma.
type HistoryEntryOutput struct {
	Body *domain.StatusHistoryEntry
}

// BookDatesResponse combines milestone dates with the derived duration.
type BookDatesResponse struct {
	domain.ImportantDates
	ReadingDurationDays *int `json:"reading_duration_days,omitempty" doc:"Whole days between reading start and finish"`
}

// BookDatesOutput wraps the milestone dates for Huma.
type BookDatesOutput struct {
	Body BookDatesResponse
}

// === Handlers ===

func (s *Server) handleListBookHistory(ctx context.Context, input *GetBookInput) (*HistoryListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	// Ownership check; the history itself has no per-entry ACL.
	if _, err := s.services.Books.GetBook(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	out := &HistoryListOutput{}
	out.Body.Entries = s.services.History.List(ctx, input.ID)
	if out.Body.Entries == nil {
		out.Body.Entries = []*domain.StatusHistoryEntry{}
	}
	return out, nil
}

func (s *Server) handleRecordManualHistory(ctx context.Context, input *ManualHistoryInput) (*HistoryEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.services.History.RecordManual(
		ctx,
		userID,
		input.ID,
		input.Body.ChangedAt,
		domain.ReadingStatus(input.Body.Status),
		domain.ReadingStatus(input.Body.PreviousStatus),
	)
	if err != nil {
		return nil, err
	}

	return &HistoryEntryOutput{Body: entry}, nil
}

func (s *Server) handleGetBookDates(ctx context.Context, input *GetBookInput) (*BookDatesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.services.Books.GetBook(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	dates := s.services.History.ImportantDates(ctx, input.ID)
	resp := BookDatesResponse{ImportantDates: dates}
	if days, ok := dates.ReadingDurationDays(); ok {
		resp.ReadingDurationDays = &days
	}

	return &BookDatesOutput{Body: resp}, nil
}
