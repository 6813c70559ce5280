package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
)

// Index field names. title/abstract are analyzed text; title_kw, authors, and
// categories are keyword fields so they support exact filters, facets, and
// sorting; update_date is a datetime field.
const (
	FieldTitle      = "title"
	FieldTitleKW    = "title_kw"
	FieldAbstract   = "abstract"
	FieldAuthors    = "authors"
	FieldCategories = "categories"
	FieldUpdateDate = "update_date"
)

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so query terms
	// match indexed words directly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(FieldTitle, textFieldMapping)
	docMapping.AddFieldMappingsAt(FieldAbstract, textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt(FieldTitleKW, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(FieldAuthors, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(FieldCategories, keywordFieldMapping)

	dateFieldMapping := bleve.NewDateTimeFieldMapping()
	docMapping.AddFieldMappingsAt(FieldUpdateDate, dateFieldMapping)

	im.DefaultMapping = docMapping
	return im
}

// openIndex opens an existing Bleve index at path or creates a new one.
// If the mapping changes in code, remove the index directory to force a re-index.
func openIndex(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open index: %w", openErr)
		}
		return index, nil
	}
	index, err := bleve.New(path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// indexPaper indexes the searchable projection of a paper. An explicit map is
// used so field names match the mapping regardless of struct tags.
func (s *PaperStore) indexPaper(p *models.Paper) error {
	doc := map[string]interface{}{
		FieldTitle:      p.Title,
		FieldTitleKW:    p.Title,
		FieldAbstract:   p.Abstract,
		FieldAuthors:    []string(p.Authors),
		FieldCategories: []string(p.Categories),
		FieldUpdateDate: parseUpdateDate(p.UpdateDate),
	}
	if err := s.index.Index(p.ID, doc); err != nil {
		return fmt.Errorf("%w: failed to index paper: %v", ErrUnavailable, err)
	}
	return nil
}

// Search executes a structured query and resolves hits to canonical records.
// Hits whose record has vanished from the database are skipped. MinScore is
// applied here since Bleve has no server-side score floor.
func (s *PaperStore) Search(ctx context.Context, q blevequery.Query, opts SearchOptions) ([]Hit, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = opts.Size
	if req.Size <= 0 {
		req.Size = 10
	}
	req.From = opts.From
	if len(opts.Sort) > 0 {
		req.SortBy(opts.Sort)
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if opts.MinScore > 0 && hit.Score < opts.MinScore {
			continue
		}
		paper, err := s.GetPaper(ctx, hit.ID)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{Paper: paper, Score: hit.Score})
	}
	return hits, nil
}

// Aggregate runs the named bucket aggregations over the whole collection.
// Substring inclusion is applied to bucket keys here, mirroring the search
// engine's facet include pattern.
func (s *PaperStore) Aggregate(ctx context.Context, specs map[string]AggSpec) (map[string][]Bucket, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = 0
	for name, spec := range specs {
		// Fetch a wider facet when filtering so enough keys survive the
		// substring cut.
		fetch := spec.Size
		if spec.Include != "" {
			fetch = 1000
		}
		req.AddFacet(name, bleve.NewFacetRequest(spec.Field, fetch))
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregation failed: %v", ErrUnavailable, err)
	}

	out := make(map[string][]Bucket, len(specs))
	for name, spec := range specs {
		facet, ok := res.Facets[name]
		if !ok || facet.Terms == nil {
			out[name] = nil
			continue
		}
		include := strings.ToLower(spec.Include)
		buckets := make([]Bucket, 0, spec.Size)
		for _, term := range facet.Terms.Terms() {
			if include != "" && !strings.Contains(strings.ToLower(term.Term), include) {
				continue
			}
			buckets = append(buckets, Bucket{Key: term.Term, Count: term.Count})
			if len(buckets) >= spec.Size {
				break
			}
		}
		out[name] = buckets
	}
	return out, nil
}

// Count returns the number of index entries matching q.
func (s *PaperStore) Count(ctx context.Context, q blevequery.Query) (int64, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("%w: count failed: %v", ErrUnavailable, err)
	}
	return int64(res.Total), nil
}
