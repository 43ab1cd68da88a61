package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/pagetrack/pagetrack-server/internal/normalize"
)

// ErrNoUser is returned when a search is not scoped to a user.
var ErrNoUser = errors.New("search requires a user id")

// SearchParams configures a search query.
type SearchParams struct {
	UserID string // Required; results never cross users
	Query  string // Free text matched against name and author

	// Filters
	Situation string
	Genre     string

	// Pagination
	Limit  int
	Offset int

	// Sorting: "relevance", "name", "recent", "pages"
	SortBy    string
	SortOrder string // "asc", "desc"

	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults for userID.
func DefaultSearchParams(userID string) SearchParams {
	return SearchParams{
		UserID:        userID,
		Limit:         50,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"tookMs"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets"`
}

// SearchHit is one matching book.
type SearchHit struct {
	BookID     string            `json:"bookId"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchFacets counts matches per reading state and genre.
type SearchFacets struct {
	Situations []FacetCount `json:"situations,omitempty"`
	Genres     []FacetCount `json:"genres,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a query over one user's books.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.UserID == "" {
		return nil, ErrNoUser
	}
	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams(params.UserID).Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.IncludeFacets {
		searchRequest.AddFacet("situation", bleve.NewFacetRequest("situation", 4))
		searchRequest.AddFacet("genre", bleve.NewFacetRequest("genre", 10))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("name")
		searchRequest.Highlight.AddField("author")
	}

	searchRequest.Fields = []string{"book_id"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{Score: hit.Score}
		if id, ok := hit.Fields["book_id"].(string); ok {
			searchHit.BookID = id
		}

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// buildSearchQuery scopes every query to the user, then ANDs the text match
// and filters onto it.
func buildSearchQuery(params SearchParams) query.Query {
	userQuery := bleve.NewTermQuery(params.UserID)
	userQuery.SetField("user_id")
	queries := []query.Query{userQuery}

	if text := normalize.Fold(params.Query); text != "" {
		nameMatch := bleve.NewMatchQuery(text)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(text)
		authorMatch.SetField("author")
		authorMatch.SetBoost(1.5)

		// Typo tolerance on the title
		fuzzyQuery := bleve.NewFuzzyQuery(text)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)

		textQueries := []query.Query{nameMatch, authorMatch, fuzzyQuery}

		// Prefix for search-as-you-type
		if len(text) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(text)
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Situation != "" {
		tq := bleve.NewTermQuery(params.Situation)
		tq.SetField("situation")
		queries = append(queries, tq)
	}

	if params.Genre != "" {
		gq := bleve.NewTermQuery(params.Genre)
		gq.SetField("genre")
		queries = append(queries, gq)
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	desc := params.SortOrder == "desc"
	switch params.SortBy {
	case "name":
		if desc {
			req.SortBy([]string{"-name"})
		} else {
			req.SortBy([]string{"name"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"updated_at"})
		} else {
			req.SortBy([]string{"-updated_at"})
		}
	case "pages":
		if desc {
			req.SortBy([]string{"-page_count"})
		} else {
			req.SortBy([]string{"page_count"})
		}
	default:
		req.SortBy([]string{"-_score"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) SearchFacets {
	facets := SearchFacets{}

	if situationFacet, ok := result.Facets["situation"]; ok && situationFacet.Terms != nil {
		for _, term := range situationFacet.Terms.Terms() {
			facets.Situations = append(facets.Situations, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	if genreFacet, ok := result.Facets["genre"]; ok && genreFacet.Terms != nil {
		for _, term := range genreFacet.Terms.Terms() {
			facets.Genres = append(facets.Genres, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return facets
}
