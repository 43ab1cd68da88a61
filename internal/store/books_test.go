package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

func TestCreateBook(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook("book-001")

	require.NoError(t, s.CreateBook(ctx, "user-1", book))

	retrieved, err := s.GetBook(ctx, "user-1", book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, retrieved.ID)
	assert.Equal(t, book.Name, retrieved.Name)
	assert.Equal(t, 412, retrieved.PageCount)
}

func TestCreateBook_Duplicate(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook("book-001")

	require.NoError(t, s.CreateBook(ctx, "user-1", book))
	err := s.CreateBook(ctx, "user-1", book)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetBook_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetBook(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestUpdateBook(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook("book-001")
	require.NoError(t, s.CreateBook(ctx, "user-1", book))

	before := book.UpdatedAt
	time.Sleep(2 * time.Millisecond)

	book.Name = "Dune Messiah"
	require.NoError(t, s.UpdateBook(ctx, "user-1", book))

	retrieved, err := s.GetBook(ctx, "user-1", book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", retrieved.Name)
	assert.True(t, retrieved.UpdatedAt.After(before))
}

func TestSetBookState(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	book := createTestBook("book-001")
	require.NoError(t, s.CreateBook(ctx, "user-1", book))

	updated, err := s.SetBookState(ctx, "user-1", book.ID, domain.StateRead)
	require.NoError(t, err)
	assert.Equal(t, domain.StateRead, updated.Situation)
	assert.Equal(t, book.Name, updated.Name)

	_, err = s.SetBookState(ctx, "user-1", "missing", domain.StateRead)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestListBooks_FilterByState(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	reading := createTestBook("book-1")
	reading.Situation = domain.StateCurrentlyReading
	wanted := createTestBook("book-2")

	require.NoError(t, s.CreateBook(ctx, "user-1", reading))
	require.NoError(t, s.CreateBook(ctx, "user-1", wanted))

	all, err := s.ListBooks(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := s.ListBooks(ctx, "user-1", domain.StateCurrentlyReading)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "book-1", filtered[0].ID)
}
