package domain

import (
	"sort"
	"time"
)

// DuplicateWindow is the minimum spacing between two history entries of the
// same book. A manual entry whose timestamp falls within this window of an
// existing entry is rejected as a duplicate.
const DuplicateWindow = 60 * time.Second

// StatusHistoryEntry is one event in a book's append-only status log.
// Entries are immutable: they are never updated and only deleted as a side
// effect of deleting the whole book.
//
// PreviousStatus records the status being left as reported by the caller.
// It is informational only and is not verified against the actual prior entry.
type StatusHistoryEntry struct {
	Syncable
	BookID         string        `json:"book_id"`
	Status         ReadingStatus `json:"status"`
	PreviousStatus ReadingStatus `json:"previous_status,omitempty"`
	ChangedAt      time.Time     `json:"changed_at"`
	RecordedBy     string        `json:"recorded_by"`
	Manual         bool          `json:"manual,omitempty"`
	Notes          string        `json:"notes,omitempty"`
}

// NewStatusHistoryEntry creates a history entry. ChangedAt is the instant the
// status took effect - the current time for automatic transitions, a
// caller-supplied past instant for manual entries.
func NewStatusHistoryEntry(id, bookID, userID string, status, previous ReadingStatus, changedAt time.Time, manual bool) *StatusHistoryEntry {
	e := &StatusHistoryEntry{
		BookID:         bookID,
		Status:         status,
		PreviousStatus: previous,
		ChangedAt:      changedAt,
		RecordedBy:     userID,
		Manual:         manual,
	}
	e.ID = id
	e.InitTimestamps()
	return e
}

// SortHistoryDesc orders entries most-recent first. The backing store does not
// guarantee any server-side order, so every consumer must go through this one
// comparator instead of reimplementing it.
//
// Zero ChangedAt values sort last (they compare as the earliest instant).
// Ties on ChangedAt are broken by insertion order (CreatedAt, then ID) so the
// ordering is deterministic.
func SortHistoryDesc(entries []*StatusHistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.ChangedAt.Equal(b.ChangedAt) {
			return a.ChangedAt.After(b.ChangedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// CurrentStatusFromHistory returns the status of the most recent entry, or ""
// when the history is empty. Entries must already be sorted descending.
func CurrentStatusFromHistory(entries []*StatusHistoryEntry) ReadingStatus {
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Status
}

// ImportantDates are the milestone instants derived from a book's history.
// Never persisted - always recomputed from the log.
type ImportantDates struct {
	ReadingStartedAt   *time.Time `json:"reading_started_at,omitempty"`
	ReReadingStartedAt *time.Time `json:"re_reading_started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

// ExtractImportantDates derives milestone dates from a history sorted
// descending. Each date comes from the chronologically earliest matching
// entry, answering "when did this first happen" - a later re-read does not
// move the original start date.
func ExtractImportantDates(entries []*StatusHistoryEntry) ImportantDates {
	var dates ImportantDates

	// Walk oldest-first so the first match wins.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		switch e.Status {
		case StatusReading, StatusReReading:
			if dates.ReadingStartedAt == nil {
				t := e.ChangedAt
				dates.ReadingStartedAt = &t
			}
			if e.Status == StatusReReading && dates.ReReadingStartedAt == nil {
				t := e.ChangedAt
				dates.ReReadingStartedAt = &t
			}
		case StatusFinished:
			if dates.FinishedAt == nil {
				t := e.ChangedAt
				dates.FinishedAt = &t
			}
		}
	}

	return dates
}

// ReadingDurationDays returns the reading duration in whole days, rounded up,
// or false when either milestone is missing.
func (d ImportantDates) ReadingDurationDays() (int, bool) {
	if d.ReadingStartedAt == nil || d.FinishedAt == nil {
		return 0, false
	}

	span := d.FinishedAt.Sub(*d.ReadingStartedAt)
	if span < 0 {
		span = -span
	}

	const day = 24 * time.Hour
	days := int((span + day - 1) / day)
	return days, true
}

// HasNearbyEntry reports whether any entry's ChangedAt falls within the
// duplicate window of the given instant.
func HasNearbyEntry(entries []*StatusHistoryEntry, at time.Time) bool {
	for _, e := range entries {
		delta := e.ChangedAt.Sub(at)
		if delta < 0 {
			delta = -delta
		}
		if delta < DuplicateWindow {
			return true
		}
	}
	return false
}
