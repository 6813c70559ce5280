package store

import (
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
)

// Relevance boosts for the multi-field match clause.
const (
	titleBoost    = 2.0
	abstractBoost = 1.5
)

// BuildQuery builds the structured boolean query for a search term and filter
// set. Pure and deterministic: the same (term, filter) pair always yields the
// same query tree.
//
// The must clause is a disjunction of per-field match queries over title
// (boost 2.0), abstract (boost 1.5), authors, and categories, with fuzziness
// auto-scaled to the term length. Filters are ANDed onto the query; values
// within one filter are ORed. Category filters match the keyword-indexed
// category codes exactly; author filters allow one edit of slack.
func BuildQuery(term string, filter *models.SearchFilter) blevequery.Query {
	q := bleve.NewBooleanQuery()
	q.AddMust(buildMatchClause(term))

	if filter == nil {
		return q
	}

	if len(filter.Categories) > 0 {
		cats := make([]blevequery.Query, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			tq := bleve.NewTermQuery(c)
			tq.SetField(FieldCategories)
			cats = append(cats, tq)
		}
		q.AddMust(bleve.NewDisjunctionQuery(cats...))
	}

	if len(filter.Authors) > 0 {
		authors := make([]blevequery.Query, 0, len(filter.Authors))
		for _, a := range filter.Authors {
			mq := bleve.NewMatchQuery(a)
			mq.SetField(FieldAuthors)
			mq.SetFuzziness(1)
			authors = append(authors, mq)
		}
		q.AddMust(bleve.NewDisjunctionQuery(authors...))
	}

	if filter.DateRange != nil {
		if dr := buildDateRange(filter.DateRange); dr != nil {
			q.AddMust(dr)
		}
	}

	return q
}

func buildMatchClause(term string) blevequery.Query {
	fuzziness := AutoFuzziness(term)

	fields := []struct {
		name  string
		boost float64
	}{
		{FieldTitle, titleBoost},
		{FieldAbstract, abstractBoost},
		{FieldAuthors, 1.0},
		{FieldCategories, 1.0},
	}

	queries := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(term)
		mq.SetField(f.name)
		mq.SetBoost(f.boost)
		mq.SetFuzziness(fuzziness)
		queries = append(queries, mq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// AutoFuzziness scales the allowed edit distance to the term's shortest
// token, following the search engine convention: under 3 characters exact,
// 3-5 characters one edit, longer two edits.
func AutoFuzziness(term string) int {
	shortest := -1
	for _, tok := range strings.Fields(term) {
		n := len([]rune(tok))
		if shortest < 0 || n < shortest {
			shortest = n
		}
	}
	switch {
	case shortest < 3:
		return 0
	case shortest <= 5:
		return 1
	default:
		return 2
	}
}

// buildDateRange builds an inclusive range on update_date. Both bounds are
// optional; nil is returned when neither parses.
func buildDateRange(dr *models.DateRange) blevequery.Query {
	var from, to time.Time
	if dr.From != "" {
		if t, err := models.ParseDate(dr.From); err == nil {
			from = t
		}
	}
	if dr.To != "" {
		if t, err := models.ParseDate(dr.To); err == nil {
			to = t
		}
	}
	if from.IsZero() && to.IsZero() {
		return nil
	}
	inclusive := true
	q := bleve.NewDateRangeInclusiveQuery(from, to, &inclusive, &inclusive)
	q.SetField(FieldUpdateDate)
	return q
}

// SortSpec maps the request's sortBy/sortOrder to index sort fields.
// Relevance sorts score descending with a date-descending tiebreak; date and
// title honor the requested order. Callers pass already-normalized values.
func SortSpec(sortBy, sortOrder string) []string {
	desc := sortOrder != models.OrderAsc
	switch sortBy {
	case models.SortDate:
		if desc {
			return []string{"-" + FieldUpdateDate}
		}
		return []string{FieldUpdateDate}
	case models.SortTitle:
		if desc {
			return []string{"-" + FieldTitleKW}
		}
		return []string{FieldTitleKW}
	default:
		return []string{"-_score", "-" + FieldUpdateDate}
	}
}
