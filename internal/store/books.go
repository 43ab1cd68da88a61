package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

// CreateBook stores a new book in the user's partition.
func (s *Store) CreateBook(ctx context.Context, userID string, book *domain.Book) error {
	if err := s.Books.Create(ctx, userID, book.ID, book); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ErrAlreadyExists.WithMessage(fmt.Sprintf("book %s already exists", book.ID))
		}
		return fmt.Errorf("create book: %w", err)
	}

	s.logger.Debug("book created", "user_id", userID, "book_id", book.ID, "name", book.Name)
	return nil
}

// GetBook retrieves a book by id.
func (s *Store) GetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	book, err := s.Books.Get(ctx, userID, bookID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBookNotFound
	}
	return book, err
}

// UpdateBook replaces a book. The book must already exist.
func (s *Store) UpdateBook(ctx context.Context, userID string, book *domain.Book) error {
	book.Touch()
	err := s.Books.Update(ctx, userID, book.ID, book)
	if errors.Is(err, ErrNotFound) {
		return ErrBookNotFound
	}
	return err
}

// SetBookState changes only the reading state of a book.
func (s *Store) SetBookState(ctx context.Context, userID, bookID string, state domain.ReadingState) (*domain.Book, error) {
	var updated domain.Book
	err := s.Books.Mutate(ctx, userID, bookID, func(b *domain.Book) error {
		b.Situation = state
		b.Touch()
		updated = *b
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBook removes a book. Missing books are not an error.
func (s *Store) DeleteBook(ctx context.Context, userID, bookID string) error {
	return s.Books.Delete(ctx, userID, bookID)
}

// ListBooks returns every book of the user, optionally restricted to one reading state.
func (s *Store) ListBooks(ctx context.Context, userID string, state domain.ReadingState) ([]*domain.Book, error) {
	var books []*domain.Book
	for book, err := range s.Books.List(ctx, userID) {
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		if state != "" && book.Situation != state {
			continue
		}
		books = append(books, book)
	}
	return books, nil
}
