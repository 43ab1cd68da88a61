// Package service holds the reading tracker's business operations on books,
// alarms and goals. Services validate input before any store call and keep the
// search index and scheduler in step with the store.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/pagetrack/pagetrack-server/internal/domain"
	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/id"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/normalize"
	"github.com/pagetrack/pagetrack-server/internal/search"
	"github.com/pagetrack/pagetrack-server/internal/store"
	"github.com/pagetrack/pagetrack-server/internal/validation"
)

// maxSearchResults bounds a full-text book listing.
const maxSearchResults = 200

// BookInput holds the fields of a new book.
type BookInput struct {
	Name      string
	Author    string
	Genre     domain.Genre
	Situation domain.ReadingState
	PageCount int
}

// BookUpdate holds a partial update; nil fields are left unchanged.
type BookUpdate struct {
	Name      *string
	Author    *string
	Genre     *domain.Genre
	Situation *domain.ReadingState
	PageCount *int
}

// ListBooksParams filters a book listing.
type ListBooksParams struct {
	State domain.ReadingState // Empty lists every state
	Query string              // Full-text query; empty skips the index
}

// BookService orchestrates book operations.
type BookService struct {
	store     *store.Store
	index     *search.SearchIndex
	covers    *images.Covers
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(
	store *store.Store,
	index *search.SearchIndex,
	covers *images.Covers,
	validator *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:     store,
		index:     index,
		covers:    covers,
		validator: validator,
		logger:    logger,
	}
}

// CreateBook validates and stores a new book.
func (s *BookService) CreateBook(ctx context.Context, userID string, in BookInput) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	book := &domain.Book{
		Name:      normalize.Text(in.Name),
		Author:    normalize.Text(in.Author),
		Genre:     in.Genre,
		Situation: in.Situation,
		PageCount: in.PageCount,
	}
	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}
	book.ID = bookID
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, userID, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	s.indexBook(userID, book)

	s.logger.Info("book created",
		"book_id", book.ID,
		"user_id", userID,
		"name", book.Name,
		"situation", book.Situation)

	return book, nil
}

// GetBook retrieves a single book.
func (s *BookService) GetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	return s.store.GetBook(ctx, userID, bookID)
}

// ListBooks returns the user's books. Without a query they are sorted by name;
// with one they come back in relevance order from the search index.
func (s *BookService) ListBooks(ctx context.Context, userID string, params ListBooksParams) ([]*domain.Book, error) {
	if params.State != "" && !params.State.Valid() {
		return nil, domainerrors.Validationf("unknown reading state %q", params.State)
	}

	if strings.TrimSpace(params.Query) == "" {
		books, err := s.store.ListBooks(ctx, userID, params.State)
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		slices.SortFunc(books, func(a, b *domain.Book) int {
			return cmp.Or(
				cmp.Compare(normalize.Fold(a.Name), normalize.Fold(b.Name)),
				cmp.Compare(a.ID, b.ID),
			)
		})
		return books, nil
	}

	result, err := s.index.Search(ctx, search.SearchParams{
		UserID:    userID,
		Query:     params.Query,
		Situation: string(params.State),
		Limit:     maxSearchResults,
	})
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	books := make([]*domain.Book, 0, len(result.Hits))
	for _, hit := range result.Hits {
		book, err := s.store.GetBook(ctx, userID, hit.BookID)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("search hit has no stored book", "book_id", hit.BookID, "user_id", userID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load search hit %s: %w", hit.BookID, err)
		}
		books = append(books, book)
	}
	return books, nil
}

// UpdateBook applies a partial update to a book.
func (s *BookService) UpdateBook(ctx context.Context, userID, bookID string, update BookUpdate) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		book.Name = normalize.Text(*update.Name)
	}
	if update.Author != nil {
		book.Author = normalize.Text(*update.Author)
	}
	if update.Genre != nil {
		book.Genre = *update.Genre
	}
	if update.Situation != nil {
		book.Situation = *update.Situation
	}
	if update.PageCount != nil {
		book.PageCount = *update.PageCount
	}

	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBook(ctx, userID, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	s.indexBook(userID, book)

	s.logger.Info("book updated", "book_id", bookID, "user_id", userID)
	return book, nil
}

// SetState moves a book to another reading state.
func (s *BookService) SetState(ctx context.Context, userID, bookID string, state domain.ReadingState) (*domain.Book, error) {
	if !state.Valid() {
		return nil, domainerrors.Validationf("unknown reading state %q", state)
	}

	book, err := s.store.SetBookState(ctx, userID, bookID, state)
	if err != nil {
		return nil, err
	}
	s.indexBook(userID, book)

	s.logger.Info("book state changed", "book_id", bookID, "user_id", userID, "situation", state)
	return book, nil
}

// DeleteBook removes a book and, best-effort, its cover.
func (s *BookService) DeleteBook(ctx context.Context, userID, bookID string) error {
	book, err := s.store.GetBook(ctx, userID, bookID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteBook(ctx, userID, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.index.DeleteDocument(userID, bookID); err != nil {
		s.logger.Warn("failed to remove book from search index", "book_id", bookID, "error", err)
	}
	if book.HasCover() {
		if err := s.covers.Delete(ctx, book.ImageURL); err != nil {
			s.logger.Warn("failed to delete book cover", "book_id", bookID, "error", err)
		}
	}

	s.logger.Info("book deleted", "book_id", bookID, "user_id", userID)
	return nil
}

// UploadCover stores a new cover image for a book and points the book at it.
// The previous cover, if any, is deleted once the book is updated.
func (s *BookService) UploadCover(ctx context.Context, userID, bookID string, data []byte) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	cover, err := s.covers.Upload(ctx, data)
	if err != nil {
		return nil, err
	}

	previous := book.ImageURL
	book.ImageURL = cover.URL
	book.CoverBlurHash = cover.BlurHash

	if err := s.store.UpdateBook(ctx, userID, book); err != nil {
		if delErr := s.covers.Delete(ctx, cover.URL); delErr != nil {
			s.logger.Warn("failed to delete orphaned cover", "cover_id", cover.ID, "error", delErr)
		}
		return nil, fmt.Errorf("update book cover: %w", err)
	}

	if previous != "" {
		if err := s.covers.Delete(ctx, previous); err != nil {
			s.logger.Warn("failed to delete replaced cover", "book_id", bookID, "error", err)
		}
	}

	return book, nil
}

// Reindex rebuilds every user's search documents from the store.
func (s *BookService) Reindex(ctx context.Context) (int, error) {
	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, userID := range userIDs {
		books, err := s.store.ListBooks(ctx, userID, "")
		if err != nil {
			return indexed, fmt.Errorf("list books of %s: %w", userID, err)
		}

		docs := make([]*search.BookDocument, 0, len(books))
		for _, book := range books {
			docs = append(docs, search.BookToDocument(userID, book))
		}
		if err := s.index.IndexDocuments(docs); err != nil {
			return indexed, fmt.Errorf("index books of %s: %w", userID, err)
		}
		indexed += len(docs)
	}

	s.logger.Info("search index rebuilt from store", "users", len(userIDs), "books", indexed)
	return indexed, nil
}

// indexBook refreshes the book's search document. Failures are logged only;
// Reindex restores the index from the store.
func (s *BookService) indexBook(userID string, book *domain.Book) {
	if err := s.index.IndexDocument(search.BookToDocument(userID, book)); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}
