package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// MatchResult holds the outcome of a free-text query.
// IDs are ordered by descending relevance; Scores maps each ID to its
// Bleve score so callers can re-rank after applying their own filters.
type MatchResult struct {
	IDs    []string
	Scores map[string]float64
}

// Contains reports whether the given contact ID matched the query.
func (r *MatchResult) Contains(id string) bool {
	_, ok := r.Scores[id]
	return ok
}

// Match executes a free-text query scoped to a single owner and returns
// every matching contact ID with its relevance score. Pagination happens
// downstream, after structured filters are applied, so the full match set
// is returned here.
func (s *Index) Match(ctx context.Context, ownerID, text string) (*MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count, err := s.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	result := &MatchResult{Scores: make(map[string]float64)}
	if count == 0 {
		return result, nil
	}

	searchQuery := buildMatchQuery(ownerID, text)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, int(count), 0, false)
	searchRequest.SortBy([]string{"-_score"})

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	for _, hit := range searchResult.Hits {
		result.IDs = append(result.IDs, hit.ID)
		result.Scores[hit.ID] = hit.Score
	}

	return result, nil
}

// buildMatchQuery constructs the Bleve query for a free-text search.
// The text matches any of name, phone, address, or notes; name matches
// are boosted and get typo tolerance via a fuzzy query plus a prefix
// query for partially typed names. The owner term is ANDed in so results
// never cross owner boundaries.
func buildMatchQuery(ownerID, text string) query.Query {
	textQueries := []query.Query{}

	nameMatch := bleve.NewMatchQuery(text)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3.0)
	textQueries = append(textQueries, nameMatch)

	phoneMatch := bleve.NewMatchQuery(text)
	phoneMatch.SetField("phone")
	textQueries = append(textQueries, phoneMatch)

	addressMatch := bleve.NewMatchQuery(text)
	addressMatch.SetField("address")
	textQueries = append(textQueries, addressMatch)

	notesMatch := bleve.NewMatchQuery(text)
	notesMatch.SetField("notes")
	textQueries = append(textQueries, notesMatch)

	fuzzyQuery := bleve.NewFuzzyQuery(text)
	fuzzyQuery.SetFuzziness(1)
	fuzzyQuery.SetField("name")
	fuzzyQuery.SetBoost(0.8)
	textQueries = append(textQueries, fuzzyQuery)

	if len(text) >= 2 {
		prefixQuery := bleve.NewPrefixQuery(strings.ToLower(text))
		prefixQuery.SetField("name")
		prefixQuery.SetBoost(0.5)
		textQueries = append(textQueries, prefixQuery)
	}

	textQuery := bleve.NewDisjunctionQuery(textQueries...)

	if ownerID == "" {
		return textQuery
	}

	ownerQuery := bleve.NewTermQuery(ownerID)
	ownerQuery.SetField("owner")
	return bleve.NewConjunctionQuery(ownerQuery, textQuery)
}
