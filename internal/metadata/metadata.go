// Package metadata resolves book information from external catalogs by ISBN.
// openBD covers Japanese publications and is queried first; Google Books is
// the fallback for everything else.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nistake0/bookmemo-server/internal/normalize"
	"github.com/nistake0/bookmemo-server/internal/ratelimit"
)

// ErrNotFound indicates no catalog had a record for the ISBN.
var ErrNotFound = errors.New("metadata: book not found")

// BookInfo is the normalized result of a catalog lookup.
type BookInfo struct {
	ISBN        string   `json:"isbn"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	PublishYear string   `json:"publish_year,omitempty"`
	Description string   `json:"description,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Source      string   `json:"source"` // "openbd" or "googlebooks"
}

// Source is a catalog that can look up a book by ISBN-13.
// Implementations return ErrNotFound when the catalog has no record.
type Source interface {
	Name() string
	LookupISBN(ctx context.Context, isbn string) (*BookInfo, error)
}

// Resolver queries sources in order until one finds the book. Lookups share
// one rate limiter keyed by source name, so a burst of imports cannot hammer
// any single catalog.
type Resolver struct {
	sources []Source
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// Outbound catalog rate: 2 requests per second per source, burst of 5.
const (
	sourceRPS   = 2.0
	sourceBurst = 5
)

// NewResolver creates a resolver that consults sources in the given order.
func NewResolver(logger *slog.Logger, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		limiter: ratelimit.New(sourceRPS, sourceBurst),
		logger:  logger,
	}
}

// LookupISBN normalizes the ISBN (ISBN-10 input is converted to ISBN-13) and
// asks each source in turn. A source failing is logged and the next one is
// tried; ErrNotFound is returned only when every source came up empty.
func (r *Resolver) LookupISBN(ctx context.Context, isbn string) (*BookInfo, error) {
	cleaned := normalize.ISBN(isbn)
	if !normalize.IsValidISBN(cleaned) {
		return nil, fmt.Errorf("metadata: invalid isbn %q", isbn)
	}
	if len(cleaned) == 10 {
		cleaned = normalize.ISBN10To13(cleaned)
	}

	for _, source := range r.sources {
		if err := r.limiter.Wait(ctx, source.Name()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		info, err := source.LookupISBN(ctx, cleaned)
		if err == nil {
			r.logger.Debug("metadata lookup hit",
				"isbn", cleaned,
				"source", source.Name(),
			)
			return info, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		r.logger.Warn("metadata source failed, trying next",
			"isbn", cleaned,
			"source", source.Name(),
			"error", err,
		)
	}

	return nil, ErrNotFound
}
