package service

import (
	"context"
	"errors"
	"log/slog"

	domainerrors "github.com/nistake0/bookmemo-server/internal/errors"
	"github.com/nistake0/bookmemo-server/internal/metadata"
	"github.com/nistake0/bookmemo-server/internal/normalize"
)

// MetadataService exposes ISBN lookup to the API layer.
type MetadataService struct {
	resolver *metadata.Resolver
	logger   *slog.Logger
}

// NewMetadataService creates a metadata lookup service.
func NewMetadataService(resolver *metadata.Resolver, logger *slog.Logger) *MetadataService {
	return &MetadataService{
		resolver: resolver,
		logger:   logger,
	}
}

// LookupISBN resolves bibliographic data for an ISBN. The input may be in
// any common form (hyphens, full-width digits, ISBN-10).
func (s *MetadataService) LookupISBN(ctx context.Context, isbn string) (*metadata.BookInfo, error) {
	cleaned := normalize.ISBN(isbn)
	if !normalize.IsValidISBN(cleaned) {
		return nil, domainerrors.Validationf("invalid ISBN %q", isbn)
	}

	info, err := s.resolver.LookupISBN(ctx, cleaned)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, domainerrors.NotFoundf("no metadata found for ISBN %s", cleaned)
		}
		return nil, err
	}
	return info, nil
}
