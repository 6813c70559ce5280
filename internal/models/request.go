package models

import (
	"fmt"
	"strings"
	"time"
)

// Sort field and order values accepted by SearchRequest. Anything else
// silently falls back to the defaults.
const (
	SortRelevance = "relevance"
	SortDate      = "date"
	SortTitle     = "title"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ValidationError reports a malformed search request. It is returned before
// any I/O happens and maps to a 400 at the HTTP layer.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// DateRange bounds update_date inclusively. Both bounds are optional and
// independently applicable. Dates are ISO-8601 calendar dates.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// SearchFilter narrows a search. No field is required; an empty filter
// matches everything.
type SearchFilter struct {
	Categories []string   `json:"categories,omitempty"`
	Authors    []string   `json:"authors,omitempty"`
	DateRange  *DateRange `json:"dateRange,omitempty"`
	MinScore   float64    `json:"minScore,omitempty"`
	MaxResults int        `json:"maxResults,omitempty"`
}

// HasPredicates reports whether the filter constrains result membership.
// MaxResults is excluded: it truncates the final page rather than filtering
// candidates, so it does not force the filtered fusion path.
func (f *SearchFilter) HasPredicates() bool {
	return len(f.Categories) > 0 || len(f.Authors) > 0 || f.DateRange != nil || f.MinScore > 0
}

// Matches reports whether p satisfies the category, author, and date range
// predicates. Score-based predicates are handled where scores exist.
func (f *SearchFilter) Matches(p *Paper) bool {
	if len(f.Categories) > 0 && !intersects(f.Categories, p.Categories) {
		return false
	}
	if len(f.Authors) > 0 && !intersects(f.Authors, p.Authors) {
		return false
	}
	if f.DateRange != nil {
		d, err := ParseDate(p.UpdateDate)
		if err != nil {
			return false
		}
		if f.DateRange.From != "" {
			from, err := ParseDate(f.DateRange.From)
			if err != nil || d.Before(from) {
				return false
			}
		}
		if f.DateRange.To != "" {
			to, err := ParseDate(f.DateRange.To)
			if err != nil || d.After(to) {
				return false
			}
		}
	}
	return true
}

func intersects(wanted []string, have []string) bool {
	for _, w := range wanted {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// ParseDate parses an ISO-8601 calendar date, accepting a bare date or a full
// RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// SearchRequest carries one search call. Page and Limit are pointers so that
// an omitted value takes the default while an explicit out-of-range value
// (page=0, limit=150) is rejected.
type SearchRequest struct {
	SearchTerm    string       `json:"searchTerm"`
	Filters       SearchFilter `json:"filters"`
	Page          *int         `json:"page,omitempty"`
	Limit         *int         `json:"limit,omitempty"`
	SortBy        string       `json:"sortBy,omitempty"`
	SortOrder     string       `json:"sortOrder,omitempty"`
	ModelEndpoint string       `json:"modelEndpoint,omitempty"`
}

// Validate checks the request and normalizes it in place: the search term is
// trimmed, absent page/limit take defaults, and unrecognized sort values fall
// back to relevance/desc. Returns a *ValidationError on any malformed field;
// no I/O happens before this passes.
func (r *SearchRequest) Validate(defaultLimit, maxLimit, maxTermLen int) error {
	r.SearchTerm = strings.TrimSpace(r.SearchTerm)
	if r.SearchTerm == "" {
		return &ValidationError{Msg: "searchTerm is required"}
	}
	if maxTermLen > 0 && len(r.SearchTerm) > maxTermLen {
		return &ValidationError{Msg: fmt.Sprintf("searchTerm exceeds %d characters", maxTermLen)}
	}
	if r.Page == nil {
		page := 1
		r.Page = &page
	}
	if *r.Page < 1 {
		return &ValidationError{Msg: "page must be >= 1"}
	}
	if r.Limit == nil {
		limit := defaultLimit
		r.Limit = &limit
	}
	if *r.Limit < 1 || *r.Limit > maxLimit {
		return &ValidationError{Msg: fmt.Sprintf("limit must be between 1 and %d", maxLimit)}
	}
	if r.Filters.MinScore < 0 {
		return &ValidationError{Msg: "minScore must be >= 0"}
	}
	if r.Filters.MaxResults < 0 {
		return &ValidationError{Msg: "maxResults must be > 0"}
	}
	switch r.SortBy {
	case SortRelevance, SortDate, SortTitle:
	default:
		r.SortBy = SortRelevance
	}
	switch r.SortOrder {
	case OrderAsc, OrderDesc:
	default:
		r.SortOrder = OrderDesc
	}
	return nil
}

// PageValue returns the resolved page; valid only after Validate.
func (r *SearchRequest) PageValue() int { return *r.Page }

// LimitValue returns the resolved limit; valid only after Validate.
func (r *SearchRequest) LimitValue() int { return *r.Limit }

// Offset returns the zero-based slice offset; valid only after Validate.
func (r *SearchRequest) Offset() int { return (*r.Page - 1) * *r.Limit }
