package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/service"
)

func (s *Server) registerMemoRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "create-memo",
		Method:      http.MethodPost,
		Path:        "/api/v1/memos",
		Summary:     "Add a memo",
		Description: "Attaches a reading memo to one of the caller's books.",
		Tags:        []string{"Memos"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateMemo)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-memos",
		Method:      http.MethodGet,
		Path:        "/api/v1/memos",
		Summary:     "List all memos",
		Tags:        []string{"Memos"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMemos)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-memo",
		Method:      http.MethodGet,
		Path:        "/api/v1/memos/{id}",
		Summary:     "Get a memo",
		Tags:        []string{"Memos"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetMemo)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-memo",
		Method:      http.MethodPatch,
		Path:        "/api/v1/memos/{id}",
		Summary:     "Edit a memo",
		Tags:        []string{"Memos"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateMemo)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-memo",
		Method:      http.MethodDelete,
		Path:        "/api/v1/memos/{id}",
		Summary:     "Delete a memo",
		Tags:        []string{"Memos"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteMemo)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-book-memos",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/memos",
		Summary:     "List a book's memos",
		Tags:        []string{"Memos"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBookMemos)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List memo tags",
		Description: "Returns the caller's memo tags with usage counts, most used first.",
		Tags:        []string{"Memos"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)
}

// === DTOs ===

// CreateMemoInput wraps the memo creation request for Huma.
type CreateMemoInput struct {
	Body service.CreateMemoRequest
}

// MemoOutput wraps a single memo for Huma.
type MemoOutput struct {
	Body *domain.Memo
}

// MemoListOutput wraps a list of memos for Huma.
type MemoListOutput struct {
	Body struct {
		Memos []*domain.Memo `json:"memos" doc:"Memos, newest first"`
	}
}

// GetMemoInput identifies a memo by path parameter.
type GetMemoInput struct {
	ID string `path:"id" doc:"Memo ID"`
}

// UpdateMemoInput wraps a partial memo edit for Huma.
type UpdateMemoInput struct {
	ID   string `path:"id" doc:"Memo ID"`
	Body service.UpdateMemoRequest
}

// TagListOutput wraps the tag usage list for Huma.
type TagListOutput struct {
	Body struct {
		Tags []service.TagCount `json:"tags" doc:"Tags with usage counts"`
	}
}

// === Handlers ===

func (s *Server) handleCreateMemo(ctx context.Context, input *CreateMemoInput) (*MemoOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	memo, err := s.services.Memos.CreateMemo(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}

	return &MemoOutput{Body: memo}, nil
}

func (s *Server) handleListMemos(ctx context.Context, _ *struct{}) (*MemoListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	memos, err := s.services.Memos.ListMemos(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &MemoListOutput{}
	out.Body.Memos = memos
	if out.Body.Memos == nil {
		out.Body.Memos = []*domain.Memo{}
	}
	return out, nil
}

func (s *Server) handleGetMemo(ctx context.Context, input *GetMemoInput) (*MemoOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	memo, err := s.services.Memos.GetMemo(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &MemoOutput{Body: memo}, nil
}

func (s *Server) handleUpdateMemo(ctx context.Context, input *UpdateMemoInput) (*MemoOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	memo, err := s.services.Memos.UpdateMemo(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}

	return &MemoOutput{Body: memo}, nil
}

func (s *Server) handleDeleteMemo(ctx context.Context, input *GetMemoInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Memos.DeleteMemo(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Memo deleted"}}, nil
}

func (s *Server) handleListBookMemos(ctx context.Context, input *GetBookInput) (*MemoListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	memos, err := s.services.Memos.ListMemosForBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &MemoListOutput{}
	out.Body.Memos = memos
	if out.Body.Memos == nil {
		out.Body.Memos = []*domain.Memo{}
	}
	return out, nil
}

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*TagListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Memos.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &TagListOutput{}
	out.Body.Tags = tags
	if out.Body.Tags == nil {
		out.Body.Tags = []service.TagCount{}
	}
	return out, nil
}
