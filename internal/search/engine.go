// Package search provides the result fusion engine: it reconciles ranking
// model candidates with the document store and produces one scored, sorted,
// paginated result set under every source-availability scenario.
package search

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trihuynhnhut0107/SciFind/internal/config"
	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/ranker"
	"github.com/trihuynhnhut0107/SciFind/internal/reconcile"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
)

// Engine fuses document store hits with ranking model candidates.
type Engine struct {
	store  store.Store
	ranker ranker.Ranker
	cfg    *config.SearchConfig
	logger *zap.Logger
}

// NewEngine creates a fusion engine with the given dependencies.
func NewEngine(st store.Store, rk ranker.Ranker, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:  st,
		ranker: rk,
		cfg:    cfg,
		logger: logger,
	}
}

// Search runs one search request end to end: validation, concurrent model
// and store queries, fusion, sorting, and pagination.
//
// Availability branches:
//  1. model up, no filters: candidates fetched directly by reconciled id,
//     scored by model rank.
//  2. model up, filters: filtered store hits intersected with candidates by
//     reconciled id, scored by model rank over the post-filter set.
//  3. model down or empty: pure store ranking with the requested sort.
//  4. blended policy: weighted sum over the intersection, re-sorted.
//
// A store failure is fatal to the request; a model failure degrades to
// branch 3 and is never surfaced as a request failure.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	if err := req.Validate(e.cfg.DefaultLimit, e.cfg.MaxLimit, e.cfg.MaxSearchTermLength); err != nil {
		return nil, err
	}

	q := store.BuildQuery(req.SearchTerm, &req.Filters)
	opts := store.SearchOptions{
		MinScore: req.Filters.MinScore,
		Size:     e.cfg.CandidatePool,
		Sort:     store.SortSpec(req.SortBy, req.SortOrder),
	}

	// The model call and the store query are independent; overlap them so
	// latency is bounded by the slower of the two.
	var (
		hits     []store.Hit
		storeErr error
		modelRes ranker.Result
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		hits, storeErr = e.store.Search(ctx, q, opts)
	}()
	go func() {
		defer wg.Done()
		modelRes = e.ranker.Query(ctx, req.SearchTerm, req.ModelEndpoint)
	}()
	wg.Wait()

	if storeErr != nil {
		return nil, storeErr
	}

	modelUsed := modelRes.Success && len(modelRes.Candidates) > 0

	var results []models.ScoredResult
	switch {
	case !modelUsed:
		results = storeOnlyResults(hits)
	case e.cfg.FusionPolicy == config.FusionBlended:
		results = blendResults(hits, reconcile.Keys(modelRes.Candidates))
	case req.Filters.HasPredicates():
		results = intersectResults(hits, reconcile.Keys(modelRes.Candidates))
	default:
		var err error
		results, err = e.fetchCandidates(ctx, reconcile.Keys(modelRes.Candidates))
		if err != nil {
			return nil, err
		}
	}

	total := len(results)
	page := paginate(results, req.Offset(), req.LimitValue())
	if req.Filters.MaxResults > 0 && len(page) > req.Filters.MaxResults {
		page = page[:req.Filters.MaxResults]
	}

	formatted := make([]models.FormattedResult, 0, len(page))
	for i := range page {
		formatted = append(formatted, page[i].Format())
	}

	return &models.SearchResponse{
		Total:         total,
		SearchTerm:    req.SearchTerm,
		Filters:       req.Filters,
		ModelUsed:     modelUsed,
		ModelEndpoint: modelRes.Endpoint,
		Results:       formatted,
		Pagination:    models.NewPagination(req.PageValue(), req.LimitValue(), total),
		Sort:          models.SortSpec{SortBy: req.SortBy, SortOrder: req.SortOrder},
	}, nil
}

// fetchCandidates resolves each reconciled candidate key straight from the
// store, preserving model rank order. Lookups run with bounded parallelism;
// a missing paper or a failed individual lookup drops that candidate rather
// than failing the request.
func (e *Engine) fetchCandidates(ctx context.Context, keys []string) ([]models.ScoredResult, error) {
	scores := reconcile.Scores(keys)
	papers := make([]*models.Paper, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrentLookups)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			p, err := e.store.GetPaper(gctx, key)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					e.logger.Warn("candidate lookup failed",
						zap.String("id", key),
						zap.Error(err),
					)
				}
				return nil
			}
			papers[i] = p
			return nil
		})
	}
	_ = g.Wait()

	results := make([]models.ScoredResult, 0, len(keys))
	for i, key := range keys {
		if papers[i] == nil {
			continue
		}
		s := scores[key]
		results = append(results, models.ScoredResult{
			Paper:         papers[i],
			ModelScore:    s,
			CombinedScore: s,
		})
	}
	return results, nil
}
