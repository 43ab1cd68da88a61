// Package domain contains the reading tracker's entities and their invariants.
package domain

import "slices"

// Genre is one of the fixed book categories.
type Genre string

const (
	GenreFiction        Genre = "fiction"
	GenreNonfiction     Genre = "nonfiction"
	GenreFantasy        Genre = "fantasy"
	GenreScienceFiction Genre = "science_fiction"
	GenreMystery        Genre = "mystery"
	GenreRomance        Genre = "romance"
)

// Genres lists every valid genre in display order.
var Genres = []Genre{
	GenreFiction,
	GenreNonfiction,
	GenreFantasy,
	GenreScienceFiction,
	GenreMystery,
	GenreRomance,
}

// Valid reports whether g is one of the fixed genres.
func (g Genre) Valid() bool {
	return slices.Contains(Genres, g)
}

// ReadingState is where the reader is with a book.
type ReadingState string

const (
	StateRead             ReadingState = "read"
	StateCurrentlyReading ReadingState = "currently_reading"
	StateStoppedReading   ReadingState = "stopped_reading"
	StateWantToRead       ReadingState = "want_to_read"
)

// ReadingStates lists every valid reading state.
var ReadingStates = []ReadingState{
	StateRead,
	StateCurrentlyReading,
	StateStoppedReading,
	StateWantToRead,
}

// Valid reports whether s is one of the fixed reading states.
func (s ReadingState) Valid() bool {
	return slices.Contains(ReadingStates, s)
}

// Book is a book in a reader's log.
type Book struct {
	Syncable
	Name          string       `json:"name" validate:"required,max=300"`
	Author        string       `json:"author,omitempty" validate:"max=200"`
	Genre         Genre        `json:"genre" validate:"required,genre"`
	Situation     ReadingState `json:"situation" validate:"required,reading_state"`
	PageCount     int          `json:"pageCount" validate:"gte=0"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	CoverBlurHash string       `json:"coverBlurHash,omitempty"`
}

// HasCover reports whether the book references an uploaded cover.
func (b *Book) HasCover() bool {
	return b.ImageURL != ""
}
