package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/service"
	"github.com/nistake0/bookmemo-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "create-book",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Add a book",
		Description: "Adds a book to the caller's library. With an ISBN and no title the bibliographic data is resolved from the metadata sources.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-books",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-book",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get a book",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-book",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Edit a book",
		Description: "Partial edit of bibliographic fields. The reading status is not editable here.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-book",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete a book",
		Description: "Deletes a book together with its memos, status history and cover image.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "change-book-status",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/status",
		Summary:     "Change reading status",
		Description: "Moves the book to a new reading status and records the transition in the status history.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleChangeBookStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "upload-book-cover",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/cover",
		Summary:     "Upload a cover image",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUploadBookCover)
}

// === DTOs ===

// CreateBookInput wraps the book creation request for Huma.
type CreateBookInput struct {
	Body service.CreateBookRequest
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// ListBooksInput holds pagination parameters for the book list.
type ListBooksInput struct {
	Limit  int    `query:"limit" doc:"Items per page (max 1000)"`
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
}

// BookListOutput wraps a page of books for Huma.
type BookListOutput struct {
	Body *store.PaginatedResult[*domain.Book]
}

// GetBookInput identifies a book by path parameter.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookInput wraps a partial book edit for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body service.UpdateBookRequest
}

// ChangeStatusBody is the request body for a status change.
type ChangeStatusBody struct {
	Status string `json:"status" validate:"required,oneof=tsundoku reading re-reading finished" doc:"New reading status"`
}

// ChangeStatusInput wraps the status change request for Huma.
type ChangeStatusInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body ChangeStatusBody
}

// UploadCoverInput carries a raw image body for a cover upload.
type UploadCoverInput struct {
	ID          string `path:"id" doc:"Book ID"`
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

// === Handlers ===

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.CreateBook(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	params := store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor}
	params.Validate()

	books, err := s.services.Books.ListBooks(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.GetBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.UpdateBook(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *GetBookInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Books.DeleteBook(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}

func (s *Server) handleChangeBookStatus(ctx context.Context, input *ChangeStatusInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.ChangeStatus(ctx, userID, input.ID, domain.ReadingStatus(input.Body.Status))
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUploadBookCover(ctx context.Context, input *UploadCoverInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("image body is required")
	}

	book, err := s.services.Books.UploadCover(ctx, userID, input.ID, input.RawBody)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}
