package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
)

func TestCreateBook(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	book := ts.createBook(t, authHeader, "  Dune  ", "want_to_read")

	assert.True(t, strings.HasPrefix(book.ID, "book-"), book.ID)
	assert.Equal(t, "Dune", book.Name)
	assert.Equal(t, "science_fiction", string(book.Genre))
	assert.Equal(t, "want_to_read", string(book.Situation))
	assert.Equal(t, 412, book.PageCount)
	assert.False(t, book.CreatedAt.IsZero())
}

func TestCreateBook_Validation(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	resp := ts.api.Post("/api/v1/books", authHeader, map[string]any{
		"name":      "",
		"genre":     "poetry",
		"situation": "want_to_read",
	})

	apiErr := requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok, "details: %#v", apiErr.Details)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "genre")
}

func TestCreateBook_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/books", map[string]any{
		"name":      "Dune",
		"genre":     "science_fiction",
		"situation": "want_to_read",
	})
	requireError(t, resp, http.StatusUnauthorized, domainerrors.CodeUnauthorized)
}

func TestListBooks_FilterAndSearch(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)

	ts.createBook(t, authHeader, "Dune", "currently_reading")
	ts.createBook(t, authHeader, "Children of Dune", "want_to_read")
	ts.createBook(t, authHeader, "Anathem", "currently_reading")

	names := func(path string) []string {
		t.Helper()
		resp := ts.api.Get(path, authHeader)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var out []string
		for _, b := range decode[ListBooksResponse](t, resp.Body.Bytes()).Data.Books {
			out = append(out, b.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Anathem", "Children of Dune", "Dune"}, names("/api/v1/books"))
	assert.Equal(t, []string{"Anathem", "Dune"}, names("/api/v1/books?state=currently_reading"))
	assert.ElementsMatch(t, []string{"Dune", "Children of Dune"}, names("/api/v1/books?q=dune"))
	assert.Equal(t, []string{"Dune"}, names("/api/v1/books?q=dune&state=currently_reading"))

	resp := ts.api.Get("/api/v1/books?state=abandoned", authHeader)
	requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)
}

func TestBooks_IsolatedPerUser(t *testing.T) {
	ts := setupTestServer(t)
	alice, _ := ts.signIn(t)
	bob, _ := ts.signIn(t)

	book := ts.createBook(t, alice, "Dune", "read")

	resp := ts.api.Get("/api/v1/books/"+book.ID, bob)
	requireError(t, resp, http.StatusNotFound, domainerrors.CodeNotFound)

	resp = ts.api.Get("/api/v1/books?q=dune", bob)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[ListBooksResponse](t, resp.Body.Bytes()).Data.Books)
}

func TestUpdateBook_PatchesPresentFields(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)
	book := ts.createBook(t, authHeader, "Dune", "want_to_read")

	resp := ts.api.Patch("/api/v1/books/"+book.ID, authHeader, map[string]any{
		"pageCount": 500,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decode[BookResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, 500, updated.PageCount)
	assert.Equal(t, "Dune", updated.Name)
	assert.Equal(t, "Frank Herbert", updated.Author)

	resp = ts.api.Patch("/api/v1/books/"+book.ID, authHeader, map[string]any{
		"situation": "abandoned",
	})
	requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)
}

func TestSetBookState(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)
	book := ts.createBook(t, authHeader, "Dune", "want_to_read")

	resp := ts.api.Put("/api/v1/books/"+book.ID+"/state", authHeader, map[string]any{"state": "read"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "read", string(decode[BookResponse](t, resp.Body.Bytes()).Data.Situation))

	resp = ts.api.Put("/api/v1/books/missing/state", authHeader, map[string]any{"state": "read"})
	requireError(t, resp, http.StatusNotFound, domainerrors.CodeNotFound)
}

func TestDeleteBook(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)
	book := ts.createBook(t, authHeader, "Dune", "want_to_read")

	resp := ts.api.Delete("/api/v1/books/"+book.ID, authHeader)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/books/"+book.ID, authHeader)
	requireError(t, resp, http.StatusNotFound, domainerrors.CodeNotFound)

	resp = ts.api.Delete("/api/v1/books/"+book.ID, authHeader)
	requireError(t, resp, http.StatusNotFound, domainerrors.CodeNotFound)
}

func TestUploadCover_ThenServe(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)
	book := ts.createBook(t, authHeader, "Dune", "want_to_read")
	img := testPNG(t, 40, 60)

	resp := ts.api.Put("/api/v1/books/"+book.ID+"/cover", authHeader,
		"Content-Type: image/png", bytes.NewReader(img))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decode[BookResponse](t, resp.Body.Bytes()).Data
	require.NotEmpty(t, updated.ImageURL)
	assert.NotEmpty(t, updated.CoverBlurHash)

	coverID, ok := images.CoverIDFromURL(updated.ImageURL)
	require.True(t, ok, updated.ImageURL)

	// Public: no Authorization header.
	resp = ts.api.Get("/api/v1/covers/" + coverID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, CacheImmutable, resp.Header().Get("Cache-Control"))
	assert.Equal(t, img, resp.Body.Bytes())

	etag := resp.Header().Get("ETag")
	require.NotEmpty(t, etag)
	resp = ts.api.Get("/api/v1/covers/"+coverID, "If-None-Match: "+etag)
	assert.Equal(t, http.StatusNotModified, resp.Code)
}

func TestUploadCover_RejectsNonImage(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.signIn(t)
	book := ts.createBook(t, authHeader, "Dune", "want_to_read")

	resp := ts.api.Put("/api/v1/books/"+book.ID+"/cover", authHeader,
		"Content-Type: image/png", strings.NewReader("definitely not a png"))
	requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)
}

func TestGetCover_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/covers/nope")
	requireError(t, resp, http.StatusNotFound, domainerrors.CodeNotFound)
}
