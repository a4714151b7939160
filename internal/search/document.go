// Package search provides full-text search over books and memos using Bleve.
// Titles and memo text are indexed with a CJK-aware analyzer so Japanese
// queries work without word boundaries, and all documents carry the owning
// user for per-user filtering.
package search

import (
	"strconv"

	"github.com/nistake0/bookmemo-server/internal/domain"
	"github.com/nistake0/bookmemo-server/internal/normalize"
)

// DocType discriminates entries in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeBook DocType = "book"
	DocTypeMemo DocType = "memo"
)

// Document is the unified structure for the Bleve index. Books and memos
// share one index so a single query can surface both; the type field groups
// results. Book and memo IDs carry distinct prefixes, so entity IDs double
// as index keys without collisions.
type Document struct {
	ID     string  `json:"id"`
	Type   DocType `json:"type"`
	UserID string  `json:"user_id"`

	// Primary searchable text. Book: title, Memo: memo text.
	Text string `json:"text"`

	// Book fields (empty for memos)
	Authors     []string `json:"authors,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Description string   `json:"description,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
	Status      string   `json:"status,omitempty"`
	PublishYear int      `json:"publish_year,omitempty"`

	// Memo fields (empty for books)
	BookID  string `json:"book_id,omitempty"`
	Comment string `json:"comment,omitempty"`
	Page    int    `json:"page,omitempty"`
	Rating  int    `json:"rating,omitempty"`

	Tags []string `json:"tags,omitempty"`

	// Unix millis, for recency sorting
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names matching
// the index mapping. Bleve would otherwise index Go struct field names.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"type":       string(d.Type),
		"user_id":    d.UserID,
		"text":       d.Text,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if len(d.Authors) > 0 {
		m["authors"] = d.Authors
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Status != "" {
		m["status"] = d.Status
	}
	if d.PublishYear > 0 {
		m["publish_year"] = d.PublishYear
	}
	if d.BookID != "" {
		m["book_id"] = d.BookID
	}
	if d.Comment != "" {
		m["comment"] = d.Comment
	}
	if d.Page > 0 {
		m["page"] = d.Page
	}
	if d.Rating > 0 {
		m["rating"] = d.Rating
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}

	return m
}

// BookDocument converts a domain Book to an index document. The title is
// width-folded so full-width queries match half-width text and vice versa.
func BookDocument(book *domain.Book) *Document {
	doc := &Document{
		ID:          book.ID,
		Type:        DocTypeBook,
		UserID:      book.UserID,
		Text:        normalize.Title(book.Title),
		Authors:     book.Authors,
		Publisher:   book.Publisher,
		Description: book.Description,
		ISBN:        book.ISBN,
		Status:      string(book.Status),
		Tags:        book.Tags,
		CreatedAt:   book.CreatedAt.UnixMilli(),
		UpdatedAt:   book.UpdatedAt.UnixMilli(),
	}

	if book.PublishYear != "" {
		if year, err := strconv.Atoi(book.PublishYear); err == nil {
			doc.PublishYear = year
		}
	}

	return doc
}

// MemoDocument converts a domain Memo to an index document.
func MemoDocument(memo *domain.Memo) *Document {
	return &Document{
		ID:        memo.ID,
		Type:      DocTypeMemo,
		UserID:    memo.UserID,
		Text:      normalize.Title(memo.Text),
		BookID:    memo.BookID,
		Comment:   normalize.Title(memo.Comment),
		Page:      memo.Page,
		Rating:    memo.Rating,
		Tags:      memo.Tags,
		CreatedAt: memo.CreatedAt.UnixMilli(),
		UpdatedAt: memo.UpdatedAt.UnixMilli(),
	}
}
