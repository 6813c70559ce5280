// Package store is the document store adapter for paper records: a SQLite
// table holds the canonical records and a Bleve index serves search, facet
// aggregation, and counts.
package store

import (
	"context"
	"errors"

	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
)

// ErrNotFound is returned when a single-paper lookup misses. A miss is a
// normal outcome, not a store failure.
var ErrNotFound = errors.New("paper not found")

// ErrUnavailable marks a store query/aggregate/get/count failure. The store
// is the system of record, so callers treat this as request-fatal.
var ErrUnavailable = errors.New("store unavailable")

// Hit is one search result from the index with its relevance score.
type Hit struct {
	Paper *models.Paper
	Score float64
}

// SearchOptions control a structured search execution.
type SearchOptions struct {
	// MinScore drops hits scoring below it; 0 means no floor.
	MinScore float64
	// Size and From bound the fetched window.
	Size int
	From int
	// Sort is a list of sort fields in Bleve syntax ("-_score", "update_date",
	// "-title_kw"). Empty means index default (score descending).
	Sort []string
}

// AggSpec describes one named bucket aggregation.
type AggSpec struct {
	// Field is the keyword field to bucket on.
	Field string
	// Include keeps only bucket keys containing this substring
	// (case-insensitive). Empty keeps everything.
	Include string
	// Size caps the number of buckets returned.
	Size int
}

// Bucket is one aggregation bucket.
type Bucket struct {
	Key   string
	Count int
}

// Store exposes the document store capabilities the search and suggestion
// layers consume: get, search, aggregate, count.
type Store interface {
	GetPaper(ctx context.Context, id string) (*models.Paper, error)
	Search(ctx context.Context, q blevequery.Query, opts SearchOptions) ([]Hit, error)
	Aggregate(ctx context.Context, specs map[string]AggSpec) (map[string][]Bucket, error)
	Count(ctx context.Context, q blevequery.Query) (int64, error)
	TotalPapers(ctx context.Context) (int64, error)
	Close() error
}
