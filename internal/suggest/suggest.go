// Package suggest produces autocomplete-style suggestions from store
// aggregations over the title, category, and author keyword fields.
package suggest

import (
	"context"
	"sort"
	"strings"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
)

// Suggestion types.
const (
	TypeTitle    = "title"
	TypeCategory = "category"
	TypeAuthor   = "author"
)

// Per-type bucket limits, matching the aggregation sizes of the search API.
const (
	searchSuggestionSize   = 5
	authorSuggestionSize   = 10
	categorySuggestionSize = 20
	listingSize            = 1000
)

// Aggregator builds suggestions from store aggregations.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates a suggestion aggregator over the given store.
func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Search returns combined title and category suggestions for terms of at
// least two characters. Shorter terms yield no suggestions, not an error.
func (a *Aggregator) Search(ctx context.Context, term string) ([]models.Suggestion, error) {
	if len(term) < 2 {
		return nil, nil
	}
	buckets, err := a.store.Aggregate(ctx, map[string]store.AggSpec{
		"title_suggestions":    {Field: store.FieldTitleKW, Include: term, Size: searchSuggestionSize},
		"category_suggestions": {Field: store.FieldCategories, Include: term, Size: searchSuggestionSize},
	})
	if err != nil {
		return nil, err
	}
	suggestions := toSuggestions(TypeTitle, buckets["title_suggestions"])
	suggestions = append(suggestions, toSuggestions(TypeCategory, buckets["category_suggestions"])...)
	return suggestions, nil
}

// Authors returns author suggestions for terms of at least two characters.
func (a *Aggregator) Authors(ctx context.Context, term string) ([]models.Suggestion, error) {
	if len(term) < 2 {
		return nil, nil
	}
	buckets, err := a.store.Aggregate(ctx, map[string]store.AggSpec{
		"author_suggestions": {Field: store.FieldAuthors, Include: term, Size: authorSuggestionSize},
	})
	if err != nil {
		return nil, err
	}
	return toSuggestions(TypeAuthor, buckets["author_suggestions"]), nil
}

// Categories returns category suggestions for terms of at least one character.
func (a *Aggregator) Categories(ctx context.Context, term string) ([]models.Suggestion, error) {
	if len(term) < 1 {
		return nil, nil
	}
	buckets, err := a.store.Aggregate(ctx, map[string]store.AggSpec{
		"category_suggestions": {Field: store.FieldCategories, Include: term, Size: categorySuggestionSize},
	})
	if err != nil {
		return nil, err
	}
	return toSuggestions(TypeCategory, buckets["category_suggestions"]), nil
}

// Combined gathers suggestions for the requested types, deduplicates by
// (type, value), and sorts descending by count.
func (a *Aggregator) Combined(ctx context.Context, term string, types []string) ([]models.Suggestion, error) {
	if len(types) == 0 {
		types = []string{TypeTitle, TypeCategory, TypeAuthor}
	}

	var suggestions []models.Suggestion
	if containsType(types, TypeTitle) || containsType(types, TypeCategory) {
		general, err := a.Search(ctx, term)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, general...)
	}
	if containsType(types, TypeAuthor) {
		authors, err := a.Authors(ctx, term)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, authors...)
	}

	seen := make(map[string]struct{}, len(suggestions))
	unique := suggestions[:0]
	for _, s := range suggestions {
		key := s.Type + "\x00" + s.Value
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, s)
	}
	sort.SliceStable(unique, func(i, j int) bool { return unique[i].Count > unique[j].Count })
	return unique, nil
}

// AllCategories lists every category code in the collection.
func (a *Aggregator) AllCategories(ctx context.Context) ([]string, error) {
	return a.listing(ctx, store.FieldCategories)
}

// AllAuthors lists every author in the collection.
func (a *Aggregator) AllAuthors(ctx context.Context) ([]string, error) {
	return a.listing(ctx, store.FieldAuthors)
}

func (a *Aggregator) listing(ctx context.Context, field string) ([]string, error) {
	buckets, err := a.store.Aggregate(ctx, map[string]store.AggSpec{
		"listing": {Field: field, Size: listingSize},
	})
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(buckets["listing"]))
	for _, b := range buckets["listing"] {
		values = append(values, b.Key)
	}
	return values, nil
}

func toSuggestions(typ string, buckets []store.Bucket) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, models.Suggestion{Type: typ, Value: b.Key, Count: b.Count})
	}
	return out
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if strings.EqualFold(strings.TrimSpace(v), t) {
			return true
		}
	}
	return false
}
