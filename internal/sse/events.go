// Package sse implements Server-Sent Events for pushing library changes to connected clients.
package sse

import (
	"time"

	"github.com/nistake0/bookmemo-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated represents a book update event.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book deletion event.
	EventBookDeleted EventType = "book.deleted"

	// EventMemoCreated represents a memo creation event.
	EventMemoCreated EventType = "memo.created"
	// EventMemoUpdated represents a memo update event.
	EventMemoUpdated EventType = "memo.updated"
	// EventMemoDeleted represents a memo deletion event.
	EventMemoDeleted EventType = "memo.deleted"

	// EventStatusChanged represents a new status history entry for a book.
	EventStatusChanged EventType = "status.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// When set, the event is only delivered to clients of this user.
	// Empty means broadcast to all connected clients.
	UserID string `json:"-"`
}

// BookEventData is the data payload for book events.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the data payload for book delete events.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// MemoEventData is the data payload for memo events.
type MemoEventData struct {
	Memo *domain.Memo `json:"memo"`
}

// MemoDeletedEventData is the data payload for memo delete events.
type MemoDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	MemoID    string    `json:"memo_id"`
	BookID    string    `json:"book_id"`
}

// StatusChangedEventData is the data payload for status change events.
type StatusChangedEventData struct {
	Entry *domain.StatusHistoryEntry `json:"entry"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookCreatedEvent creates a book.created event scoped to the book's owner.
func NewBookCreatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookCreated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
		UserID:    book.UserID,
	}
}

// NewBookUpdatedEvent creates a book.updated event scoped to the book's owner.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookUpdated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
		UserID:    book.UserID,
	}
}

// NewBookDeletedEvent creates a book.deleted event scoped to the book's owner.
func NewBookDeletedEvent(userID, bookID string, deletedAt time.Time) Event {
	return Event{
		Type: EventBookDeleted,
		Data: BookDeletedEventData{
			BookID:    bookID,
			DeletedAt: deletedAt,
		},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewMemoCreatedEvent creates a memo.created event scoped to the memo's owner.
func NewMemoCreatedEvent(memo *domain.Memo) Event {
	return Event{
		Type:      EventMemoCreated,
		Data:      MemoEventData{Memo: memo},
		Timestamp: time.Now(),
		UserID:    memo.UserID,
	}
}

// NewMemoUpdatedEvent creates a memo.updated event scoped to the memo's owner.
func NewMemoUpdatedEvent(memo *domain.Memo) Event {
	return Event{
		Type:      EventMemoUpdated,
		Data:      MemoEventData{Memo: memo},
		Timestamp: time.Now(),
		UserID:    memo.UserID,
	}
}

// NewMemoDeletedEvent creates a memo.deleted event scoped to the memo's owner.
func NewMemoDeletedEvent(userID, memoID, bookID string, deletedAt time.Time) Event {
	return Event{
		Type: EventMemoDeleted,
		Data: MemoDeletedEventData{
			MemoID:    memoID,
			BookID:    bookID,
			DeletedAt: deletedAt,
		},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewStatusChangedEvent creates a status.changed event scoped to the entry's owner.
func NewStatusChangedEvent(entry *domain.StatusHistoryEntry) Event {
	return Event{
		Type:      EventStatusChanged,
		Data:      StatusChangedEventData{Entry: entry},
		Timestamp: time.Now(),
		UserID:    entry.RecordedBy,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
