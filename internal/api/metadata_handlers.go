package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nistake0/bookmemo-server/internal/metadata"
)

func (s *Server) registerMetadataRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "lookup-isbn",
		Method:      http.MethodGet,
		Path:        "/api/v1/metadata/isbn/{isbn}",
		Summary:     "Look up an ISBN",
		Description: "Resolves bibliographic data for an ISBN from the configured metadata sources without creating a book.",
		Tags:        []string{"Metadata"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLookupISBN)
}

// LookupISBNInput identifies the ISBN to resolve.
type LookupISBNInput struct {
	ISBN string `path:"isbn" doc:"ISBN-10 or ISBN-13, hyphens allowed"`
}

// MetadataOutput wraps resolved book metadata for Huma.
type MetadataOutput struct {
	Body *metadata.BookInfo
}

func (s *Server) handleLookupISBN(ctx context.Context, input *LookupISBNInput) (*MetadataOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	info, err := s.services.Metadata.LookupISBN(ctx, input.ISBN)
	if err != nil {
		return nil, err
	}

	return &MetadataOutput{Body: info}, nil
}
