package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the reader's books, optionally filtered by state or matched against a search query",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleListBooks))

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book to the reader's log",
		Tags:          []string{"Books"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, mapErrors(s.handleCreateBook))

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleGetBook))

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Updates the fields present in the request body",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleUpdateBook))

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Deletes a book and its cover. Alarms and goals keep their copied book fields.",
		Tags:          []string{"Books"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, mapErrors(s.handleDeleteBook))

	huma.Register(s.api, huma.Operation{
		OperationID: "setBookState",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/state",
		Summary:     "Set reading state",
		Description: "Moves a book to another reading state",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleSetBookState))

	huma.Register(s.api, huma.Operation{
		OperationID:  "uploadBookCover",
		Method:       http.MethodPut,
		Path:         "/api/v1/books/{id}/cover",
		Summary:      "Upload cover",
		Description:  "Stores the request body as the book's cover image (JPEG, PNG, GIF or WebP) and replaces any previous cover",
		Tags:         []string{"Books"},
		Security:     bearerSecurity,
		MaxBodyBytes: images.MaxCoverBytes,
	}, mapErrors(s.handleUploadBookCover))
}

// === DTOs ===

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID            string              `json:"id" doc:"Book ID"`
	Name          string              `json:"name" doc:"Title"`
	Author        string              `json:"author,omitempty" doc:"Author"`
	Genre         domain.Genre        `json:"genre" doc:"Genre"`
	Situation     domain.ReadingState `json:"situation" doc:"Reading state"`
	PageCount     int                 `json:"pageCount" doc:"Number of pages"`
	ImageURL      string              `json:"imageUrl,omitempty" doc:"Cover image URL"`
	CoverBlurHash string              `json:"coverBlurHash,omitempty" doc:"BlurHash placeholder of the cover"`
	CreatedAt     time.Time           `json:"createdAt" doc:"Creation time"`
	UpdatedAt     time.Time           `json:"updatedAt" doc:"Last update time"`
}

func newBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:            b.ID,
		Name:          b.Name,
		Author:        b.Author,
		Genre:         b.Genre,
		Situation:     b.Situation,
		PageCount:     b.PageCount,
		ImageURL:      b.ImageURL,
		CoverBlurHash: b.CoverBlurHash,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body BookResponse
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Authorization string `header:"Authorization"`
	State         string `query:"state" doc:"Only books in this reading state"`
	Query         string `query:"q" doc:"Full-text query over name and author"`
}

// ListBooksResponse contains a list of books.
type ListBooksResponse struct {
	Books []BookResponse `json:"books" doc:"Books, by name or by relevance when q is set"`
}

// ListBooksOutput wraps the list books response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// CreateBookRequest is the request body for creating a book.
type CreateBookRequest struct {
	Name      string `json:"name" doc:"Title"`
	Author    string `json:"author,omitempty" doc:"Author"`
	Genre     string `json:"genre" doc:"Genre"`
	Situation string `json:"situation" doc:"Reading state"`
	PageCount int    `json:"pageCount,omitempty" doc:"Number of pages"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateBookRequest
}

// BookIDInput addresses one book.
type BookIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
}

// UpdateBookRequest is the request body for updating a book.
// Only non-nil fields are applied.
type UpdateBookRequest struct {
	Name      *string `json:"name,omitempty" doc:"Title"`
	Author    *string `json:"author,omitempty" doc:"Author"`
	Genre     *string `json:"genre,omitempty" doc:"Genre"`
	Situation *string `json:"situation,omitempty" doc:"Reading state"`
	PageCount *int    `json:"pageCount,omitempty" doc:"Number of pages"`
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	Body          UpdateBookRequest
}

// SetBookStateRequest is the request body for changing a reading state.
type SetBookStateRequest struct {
	State string `json:"state" doc:"New reading state"`
}

// SetBookStateInput wraps the set state request for Huma.
type SetBookStateInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	Body          SetBookStateRequest
}

// UploadCoverInput carries raw image bytes.
type UploadCoverInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	RawBody       []byte `contentType:"image/*"`
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Book.ListBooks(ctx, identity.UserID, service.ListBooksParams{
		State: domain.ReadingState(input.State),
		Query: input.Query,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = newBookResponse(b)
	}

	return &ListBooksOutput{Body: ListBooksResponse{Books: resp}}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.CreateBook(ctx, identity.UserID, service.BookInput{
		Name:      input.Body.Name,
		Author:    input.Body.Author,
		Genre:     domain.Genre(input.Body.Genre),
		Situation: domain.ReadingState(input.Body.Situation),
		PageCount: input.Body.PageCount,
	})
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: newBookResponse(book)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.GetBook(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: newBookResponse(book)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	update := service.BookUpdate{
		Name:      input.Body.Name,
		Author:    input.Body.Author,
		PageCount: input.Body.PageCount,
	}
	if input.Body.Genre != nil {
		g := domain.Genre(*input.Body.Genre)
		update.Genre = &g
	}
	if input.Body.Situation != nil {
		st := domain.ReadingState(*input.Body.Situation)
		update.Situation = &st
	}

	book, err := s.services.Book.UpdateBook(ctx, identity.UserID, input.ID, update)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: newBookResponse(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Book.DeleteBook(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSetBookState(ctx context.Context, input *SetBookStateInput) (*BookOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.SetState(ctx, identity.UserID, input.ID, domain.ReadingState(input.Body.State))
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: newBookResponse(book)}, nil
}

func (s *Server) handleUploadBookCover(ctx context.Context, input *UploadCoverInput) (*BookOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.UploadCover(ctx, identity.UserID, input.ID, input.RawBody)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: newBookResponse(book)}, nil
}
