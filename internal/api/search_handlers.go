package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nistake0/bookmemo-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search the library",
		Description: "Full-text search over the caller's books and memos with filters and facets.",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuild-search-index",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/rebuild",
		Summary:     "Rebuild the search index",
		Description: "Drops the index and reindexes everything from the store. Root only.",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRebuildSearchIndex)
}

// === DTOs ===

// SearchInput holds the search query and filters.
type SearchInput struct {
	Query    string   `query:"q" doc:"Search query"`
	Types    []string `query:"types" doc:"Document types to include (book, memo)"`
	Statuses []string `query:"statuses" doc:"Filter books by reading status"`
	Tags     []string `query:"tags" doc:"Filter by exact tags"`
	BookID   string   `query:"book_id" doc:"Restrict memos to one book"`
	MinYear  int      `query:"min_year" doc:"Minimum publish year"`
	MaxYear  int      `query:"max_year" doc:"Maximum publish year"`
	Limit    int      `query:"limit" doc:"Results per page (default 20)"`
	Offset   int      `query:"offset" doc:"Result offset"`
	Sort     string   `query:"sort" doc:"Sort order: relevance, title, recent"`
	Order    string   `query:"order" doc:"Sort direction: asc, desc"`
	Facets   bool     `query:"facets" doc:"Include facet counts"`
}

// SearchOutput wraps the search result for Huma.
type SearchOutput struct {
	Body *search.Result
}

// RebuildIndexOutput reports the result of an index rebuild.
type RebuildIndexOutput struct {
	Body struct {
		IndexedDocuments int `json:"indexed_documents" doc:"Number of documents written to the new index"`
	}
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	params := search.Params{
		Query:         input.Query,
		Types:         input.Types,
		Statuses:      input.Statuses,
		Tags:          input.Tags,
		BookID:        input.BookID,
		MinYear:       input.MinYear,
		MaxYear:       input.MaxYear,
		Limit:         input.Limit,
		Offset:        input.Offset,
		SortBy:        input.Sort,
		SortOrder:     input.Order,
		IncludeFacets: input.Facets,
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.IncludeFacets {
		params.FacetFields = []string{"type", "status", "tags"}
	}

	result, err := s.services.Search.Search(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	return &SearchOutput{Body: result}, nil
}

func (s *Server) handleRebuildSearchIndex(ctx context.Context, _ *struct{}) (*RebuildIndexOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	if err := RequireRoot(ctx); err != nil {
		return nil, err
	}

	count, err := s.services.Search.RebuildIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := &RebuildIndexOutput{}
	out.Body.IndexedDocuments = count
	return out, nil
}
