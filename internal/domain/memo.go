package domain

// Memo is a free-form reading note attached to a book: a quote, a comment, a
// rating, or any combination. Page and Rating are optional; zero means unset.
type Memo struct {
	Syncable
	BookID  string   `json:"book_id"`
	UserID  string   `json:"user_id"`
	Text    string   `json:"text"`
	Comment string   `json:"comment,omitempty"`
	Rating  int      `json:"rating,omitempty"` // 1-5, 0 = unrated
	Page    int      `json:"page,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// NewMemo creates a memo with initialized timestamps.
func NewMemo(id, bookID, userID, text string) *Memo {
	m := &Memo{
		BookID: bookID,
		UserID: userID,
		Text:   text,
	}
	m.ID = id
	m.InitTimestamps()
	return m
}
