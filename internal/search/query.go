package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/nistake0/bookmemo-server/internal/normalize"
)

// Params configures a search query. UserID is mandatory: every query is
// scoped to one user's library.
type Params struct {
	Query  string
	UserID string

	// Filters
	Types    []string // Document types to include (empty = all)
	Statuses []string // Filter books by reading status
	Tags     []string // Filter by exact tags
	BookID   string   // Restrict memos to one book
	MinYear  int      // Minimum publish year (books only)
	MaxYear  int      // Maximum publish year (books only)

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "title", "recent"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool
	FacetFields   []string
	Highlight     bool
}

// DefaultParams returns sensible defaults.
func DefaultParams(userID string) Params {
	return Params{
		UserID:        userID,
		Limit:         20,
		Offset:        0,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		FacetFields:   []string{"type", "status", "tags"},
		Highlight:     true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
	Facets Facets `json:"facets,omitempty"`
}

// Hit represents a single search result.
type Hit struct {
	ID         string            `json:"id"`
	Type       DocType           `json:"type"`
	Score      float64           `json:"score"`
	Text       string            `json:"text"`
	Authors    []string          `json:"authors,omitempty"`
	Status     string            `json:"status,omitempty"`
	BookID     string            `json:"book_id,omitempty"`
	Page       int               `json:"page,omitempty"`
	Rating     int               `json:"rating,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Facets contains facet counts.
type Facets struct {
	Types    []FacetCount `json:"types,omitempty"`
	Statuses []FacetCount `json:"statuses,omitempty"`
	Tags     []FacetCount `json:"tags,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a query against the index.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("search requires a user id")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.IncludeFacets {
		for _, field := range params.FacetFields {
			searchRequest.AddFacet(field, bleve.NewFacetRequest(field, 20))
		}
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("text")
		searchRequest.Highlight.AddField("authors")
		searchRequest.Highlight.AddField("comment")
	}

	searchRequest.Fields = []string{
		"id", "type", "text", "authors", "status", "book_id", "page", "rating", "tags",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if t, ok := hit.Fields["type"].(string); ok {
			h.Type = DocType(t)
		}
		if txt, ok := hit.Fields["text"].(string); ok {
			h.Text = txt
		}
		h.Authors = stringsField(hit.Fields["authors"])
		if st, ok := hit.Fields["status"].(string); ok {
			h.Status = st
		}
		if b, ok := hit.Fields["book_id"].(string); ok {
			h.BookID = b
		}
		if p, ok := hit.Fields["page"].(float64); ok {
			h.Page = int(p)
		}
		if r, ok := hit.Fields["rating"].(float64); ok {
			h.Rating = int(r)
		}
		h.Tags = stringsField(hit.Fields["tags"])

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// buildQuery constructs the Bleve query from params. The user filter is
// always part of the conjunction, so no query can cross user boundaries.
func buildQuery(params Params) query.Query {
	userQuery := bleve.NewTermQuery(params.UserID)
	userQuery.SetField("user_id")

	queries := []query.Query{userQuery}

	if params.Query != "" {
		// Fold width the same way documents were folded at index time
		q := normalize.Title(params.Query)

		textQueries := []query.Query{}

		textMatch := bleve.NewMatchQuery(q)
		textMatch.SetField("text")
		textMatch.SetBoost(3.0)
		textQueries = append(textQueries, textMatch)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("authors")
		authorMatch.SetBoost(2.0)
		textQueries = append(textQueries, authorMatch)

		commentMatch := bleve.NewMatchQuery(q)
		commentMatch.SetField("comment")
		textQueries = append(textQueries, commentMatch)

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)
		textQueries = append(textQueries, descMatch)

		// Typo tolerance on the primary field
		fuzzyQuery := bleve.NewFuzzyQuery(q)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("text")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(q) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(q))
			prefixQuery.SetField("text")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Types) > 0 {
		queries = append(queries, termDisjunction("type", params.Types))
	}

	if len(params.Statuses) > 0 {
		queries = append(queries, termDisjunction("status", params.Statuses))
	}

	if len(params.Tags) > 0 {
		queries = append(queries, termDisjunction("tags", params.Tags))
	}

	if params.BookID != "" {
		bq := bleve.NewTermQuery(params.BookID)
		bq.SetField("book_id")
		queries = append(queries, bq)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		min := float64(params.MinYear)
		max := float64(params.MaxYear)
		if params.MaxYear == 0 {
			max = 3000 // Far future
		}
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("publish_year")
		queries = append(queries, rangeQuery)
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// termDisjunction builds an OR of exact term matches on one field.
func termDisjunction(field string, values []string) query.Query {
	termQueries := make([]query.Query, len(values))
	for i, v := range values {
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		termQueries[i] = tq
	}
	return bleve.NewDisjunctionQuery(termQueries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title", "text":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-text"})
		} else {
			req.SortBy([]string{"text"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		req.SortBy([]string{"-_score"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) Facets {
	facets := Facets{}

	if typeFacet, ok := result.Facets["type"]; ok {
		for _, term := range typeFacet.Terms.Terms() {
			facets.Types = append(facets.Types, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if statusFacet, ok := result.Facets["status"]; ok {
		for _, term := range statusFacet.Terms.Terms() {
			facets.Statuses = append(facets.Statuses, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if tagFacet, ok := result.Facets["tags"]; ok {
		for _, term := range tagFacet.Terms.Terms() {
			facets.Tags = append(facets.Tags, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	return facets
}

// stringsField normalizes a stored Bleve field that may come back as a
// string or a []interface{} depending on cardinality.
func stringsField(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
