// Package search keeps a Bleve full-text index of every user's books.
// Each user's books share one index and are told apart by a keyword user_id field,
// so every query is scoped to a single user.
package search

import (
	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/normalize"
)

// BookDocument is the indexed form of a book.
// Text fields are folded so accents and case never affect matching.
type BookDocument struct {
	UserID    string
	BookID    string
	Name      string
	Author    string
	Genre     string
	Situation string
	PageCount int
	UpdatedAt int64 // Unix millis
}

// DocumentID is the index key of a user's book.
func DocumentID(userID, bookID string) string {
	return userID + "/" + bookID
}

// ID returns the document's index key.
func (d *BookDocument) ID() string {
	return DocumentID(d.UserID, d.BookID)
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"user_id":    d.UserID,
		"book_id":    d.BookID,
		"name":       d.Name,
		"genre":      d.Genre,
		"situation":  d.Situation,
		"page_count": d.PageCount,
		"updated_at": d.UpdatedAt,
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	return m
}

// BookToDocument converts a user's book to its indexed form.
func BookToDocument(userID string, book *domain.Book) *BookDocument {
	return &BookDocument{
		UserID:    userID,
		BookID:    book.ID,
		Name:      normalize.Fold(book.Name),
		Author:    normalize.Fold(book.Author),
		Genre:     string(book.Genre),
		Situation: string(book.Situation),
		PageCount: book.PageCount,
		UpdatedAt: book.UpdatedAt.UnixMilli(),
	}
}
