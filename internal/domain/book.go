// Package domain contains the core business entities and domain logic for the BookMemo library.
package domain

import (
	"fmt"
	"time"
)

// ReadingStatus is the lifecycle state of a book in a user's library.
type ReadingStatus string

const (
	// StatusTsundoku marks a book that was bought but not started ("to read").
	StatusTsundoku ReadingStatus = "tsundoku"
	// StatusReading marks a book currently being read.
	StatusReading ReadingStatus = "reading"
	// StatusReReading marks a book being read again after finishing it once.
	StatusReReading ReadingStatus = "re-reading"
	// StatusFinished marks a book that has been read to the end.
	StatusFinished ReadingStatus = "finished"
)

// AllStatuses lists every valid reading status. Order matches the typical
// lifecycle but no transition graph is enforced: users mark books abandoned,
// resumed or re-read in any order they like.
func AllStatuses() []ReadingStatus {
	return []ReadingStatus{StatusTsundoku, StatusReading, StatusReReading, StatusFinished}
}

// ParseStatus validates a raw string against the status enum.
func ParseStatus(s string) (ReadingStatus, error) {
	switch ReadingStatus(s) {
	case StatusTsundoku, StatusReading, StatusReReading, StatusFinished:
		return ReadingStatus(s), nil
	}
	return "", fmt.Errorf("invalid reading status %q", s)
}

// IsValid reports whether the status is one of the four enum values.
func (s ReadingStatus) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// CoverInfo describes a stored cover image for a book.
type CoverInfo struct {
	Path     string `json:"path"`
	BlurHash string `json:"blur_hash,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Source   string `json:"source,omitempty"` // "openbd", "googlebooks", "upload"
}

// Book is a book in a user's library together with its current reading state.
// The Status field holds exactly one current value at any time and is mutated
// only through BookService.ChangeStatus or the status-manager rule on manual
// history entries.
type Book struct {
	Syncable
	UserID      string        `json:"user_id"`
	ISBN        string        `json:"isbn,omitempty"`
	Title       string        `json:"title"`
	Authors     []string      `json:"authors,omitempty"`
	Publisher   string        `json:"publisher,omitempty"`
	PublishYear string        `json:"publish_year,omitempty"`
	Description string        `json:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Cover       *CoverInfo    `json:"cover,omitempty"`
	Status      ReadingStatus `json:"status"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	MemoCount   int           `json:"memo_count"`
	// SourceRef is the external identifier of an imported record, such as a
	// Calibre book UUID. Lets repeated imports skip books already brought in.
	SourceRef string `json:"source_ref,omitempty"`
}

// SetStatus applies a new current status and keeps FinishedAt in step:
// entering "finished" records the finish instant, leaving it clears it.
func (b *Book) SetStatus(status ReadingStatus, at time.Time) {
	b.Status = status
	if status == StatusFinished {
		b.FinishedAt = &at
	} else {
		b.FinishedAt = nil
	}
	b.UpdatedAt = at
}

// HasTag reports whether the book carries the given tag.
func (b *Book) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends a tag if not already present. Returns true if added.
func (b *Book) AddTag(tag string) bool {
	if tag == "" || b.HasTag(tag) {
		return false
	}
	b.Tags = append(b.Tags, tag)
	return true
}

// RemoveTag deletes a tag. Returns true if a tag was removed.
func (b *Book) RemoveTag(tag string) bool {
	for i, t := range b.Tags {
		if t == tag {
			b.Tags = append(b.Tags[:i], b.Tags[i+1:]...)
			return true
		}
	}
	return false
}
