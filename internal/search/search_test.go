package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func testBook(id, name, author string, genre domain.Genre, state domain.ReadingState) *domain.Book {
	book := &domain.Book{
		Name:      name,
		Author:    author,
		Genre:     genre,
		Situation: state,
		PageCount: 300,
	}
	book.ID = id
	book.InitTimestamps()
	return book
}

func indexBooks(t *testing.T, index *SearchIndex, userID string, books ...*domain.Book) {
	t.Helper()
	docs := make([]*BookDocument, 0, len(books))
	for _, b := range books {
		docs = append(docs, BookToDocument(userID, b))
	}
	require.NoError(t, index.IndexDocuments(docs))
}

func hitIDs(result *SearchResult) []string {
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.BookID)
	}
	return ids
}

func seedLibrary(t *testing.T, index *SearchIndex) {
	t.Helper()
	indexBooks(t, index, "user-1",
		testBook("book-dune", "Dune", "Frank Herbert", domain.GenreScienceFiction, domain.StateCurrentlyReading),
		testBook("book-hobbit", "The Hobbit", "J.R.R. Tolkien", domain.GenreFantasy, domain.StateRead),
		testBook("book-jane", "Jane Eyre", "Charlotte Brontë", domain.GenreFiction, domain.StateWantToRead),
		testBook("book-dragons", "Dragons of Autumn Twilight", "Margaret Weis", domain.GenreFantasy, domain.StateWantToRead),
	)
	indexBooks(t, index, "user-2",
		testBook("book-other-dune", "Dune Messiah", "Frank Herbert", domain.GenreScienceFiction, domain.StateRead),
	)
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	assert.True(t, index.Created())
}

func TestSearchIndex_Search_ScopedToUser(t *testing.T) {
	index := setupTestIndex(t)
	seedLibrary(t, index)

	result, err := index.Search(context.Background(), SearchParams{UserID: "user-1", Query: "dune"})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-dune"}, hitIDs(result))

	result, err = index.Search(context.Background(), SearchParams{UserID: "user-2", Query: "dune"})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-other-dune"}, hitIDs(result))
}

func TestSearchIndex_Search_RequiresUser(t *testing.T) {
	index := setupTestIndex(t)

	_, err := index.Search(context.Background(), SearchParams{Query: "dune"})
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSearchIndex_Search_Matching(t *testing.T) {
	index := setupTestIndex(t)
	seedLibrary(t, index)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"author", "tolkien", "book-hobbit"},
		{"accent-insensitive author", "bronte", "book-jane"},
		{"accented query", "Brontë", "book-jane"},
		{"stemmed title", "dragon", "book-dragons"},
		{"prefix", "hobb", "book-hobbit"},
		{"typo", "dume", "book-dune"},
		{"case", "JANE", "book-jane"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := index.Search(ctx, SearchParams{UserID: "user-1", Query: tt.query})
			require.NoError(t, err)
			require.NotEmpty(t, result.Hits)
			assert.Equal(t, tt.want, result.Hits[0].BookID)
		})
	}
}

func TestSearchIndex_Search_Filters(t *testing.T) {
	index := setupTestIndex(t)
	seedLibrary(t, index)
	ctx := context.Background()

	result, err := index.Search(ctx, SearchParams{UserID: "user-1", Situation: string(domain.StateWantToRead)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book-jane", "book-dragons"}, hitIDs(result))

	result, err = index.Search(ctx, SearchParams{UserID: "user-1", Genre: string(domain.GenreFantasy), Situation: string(domain.StateRead)})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-hobbit"}, hitIDs(result))

	result, err = index.Search(ctx, SearchParams{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), result.Total)
}

func TestSearchIndex_Search_Facets(t *testing.T) {
	index := setupTestIndex(t)
	seedLibrary(t, index)

	result, err := index.Search(context.Background(), DefaultSearchParams("user-1"))
	require.NoError(t, err)

	situations := map[string]int{}
	for _, f := range result.Facets.Situations {
		situations[f.Value] = f.Count
	}
	assert.Equal(t, 2, situations[string(domain.StateWantToRead)])
	assert.Equal(t, 1, situations[string(domain.StateRead)])

	genres := map[string]int{}
	for _, f := range result.Facets.Genres {
		genres[f.Value] = f.Count
	}
	assert.Equal(t, 2, genres[string(domain.GenreFantasy)])
}

func TestSearchIndex_IndexDocument_Replaces(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	book := testBook("book-dune", "Dune", "Frank Herbert", domain.GenreScienceFiction, domain.StateWantToRead)
	require.NoError(t, index.IndexDocument(BookToDocument("user-1", book)))

	book.Situation = domain.StateRead
	book.Touch()
	require.NoError(t, index.IndexDocument(BookToDocument("user-1", book)))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := index.Search(ctx, SearchParams{UserID: "user-1", Situation: string(domain.StateRead)})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-dune"}, hitIDs(result))
}

func TestSearchIndex_DeleteDocument(t *testing.T) {
	index := setupTestIndex(t)
	seedLibrary(t, index)

	require.NoError(t, index.DeleteDocument("user-1", "book-dune"))

	result, err := index.Search(context.Background(), SearchParams{UserID: "user-1", Query: "dune"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	result, err = index.Search(context.Background(), SearchParams{UserID: "user-2", Query: "dune"})
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)
}

func TestSearchIndex_Sorting(t *testing.T) {
	index := setupTestIndex(t)

	short := testBook("book-short", "Short", "", domain.GenreFiction, domain.StateRead)
	short.PageCount = 90
	long := testBook("book-long", "Long", "", domain.GenreFiction, domain.StateRead)
	long.PageCount = 1200
	indexBooks(t, index, "user-1", short, long)

	result, err := index.Search(context.Background(), SearchParams{UserID: "user-1", SortBy: "pages", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-long", "book-short"}, hitIDs(result))

	result, err = index.Search(context.Background(), SearchParams{UserID: "user-1", SortBy: "pages", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-short", "book-long"}, hitIDs(result))
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)
	seedLibrary(t, index)

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_Persistence(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	assert.True(t, index.Created())
	indexBooks(t, index, "user-1",
		testBook("book-dune", "Dune", "Frank Herbert", domain.GenreScienceFiction, domain.StateRead))
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()
	assert.False(t, reopened.Created())

	result, err := reopened.Search(context.Background(), SearchParams{UserID: "user-1", Query: "dune"})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-dune"}, hitIDs(result))
}

func TestSearchIndex_LargeBatch(t *testing.T) {
	index := setupTestIndex(t)

	books := make([]*domain.Book, 0, 1200)
	for i := range 1200 {
		books = append(books, testBook(fmt.Sprintf("book-%04d", i), fmt.Sprintf("Volume %d", i), "", domain.GenreFiction, domain.StateRead))
	}
	indexBooks(t, index, "user-1", books...)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), count)
}

func TestBookToDocument(t *testing.T) {
	book := testBook("book-1", "  Les Misérables ", "Victor Hugo", domain.GenreFiction, domain.StateStoppedReading)
	book.UpdatedAt = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	doc := BookToDocument("user-1", book)

	assert.Equal(t, "user-1/book-1", doc.ID())
	assert.Equal(t, "les miserables", doc.Name)
	assert.Equal(t, "victor hugo", doc.Author)
	assert.Equal(t, "stopped_reading", doc.Situation)
	assert.Equal(t, book.UpdatedAt.UnixMilli(), doc.ToMap()["updated_at"])
}

func TestDefaultSearchParams(t *testing.T) {
	params := DefaultSearchParams("user-1")
	assert.Equal(t, "user-1", params.UserID)
	assert.Equal(t, 50, params.Limit)
	assert.Equal(t, "relevance", params.SortBy)
	assert.True(t, params.IncludeFacets)
}
