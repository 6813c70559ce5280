package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/trihuynhnhut0107/SciFind/internal/config"
	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/ranker"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
)

type mockStore struct {
	papers      map[string]*models.Paper
	hits        []store.Hit
	searchErr   error
	getErr      error
	searchCalls int
	getCalls    int
}

func (m *mockStore) GetPaper(ctx context.Context, id string) (*models.Paper, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.papers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return p, nil
}

func (m *mockStore) Search(ctx context.Context, q blevequery.Query, opts store.SearchOptions) ([]store.Hit, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits, nil
}

func (m *mockStore) Aggregate(ctx context.Context, specs map[string]store.AggSpec) (map[string][]store.Bucket, error) {
	return nil, nil
}

func (m *mockStore) Count(ctx context.Context, q blevequery.Query) (int64, error) {
	return int64(len(m.hits)), nil
}

func (m *mockStore) TotalPapers(ctx context.Context) (int64, error) {
	return int64(len(m.papers)), nil
}

func (m *mockStore) Close() error { return nil }

type mockRanker struct {
	result ranker.Result
	calls  int
}

func (m *mockRanker) Query(ctx context.Context, term, endpoint string) ranker.Result {
	m.calls++
	return m.result
}

func (m *mockRanker) CheckHealth(ctx context.Context, endpoint string) ranker.Health {
	return ranker.Health{Status: ranker.StatusHealthy}
}

func paper(id string) *models.Paper {
	return &models.Paper{
		ID:         id,
		Title:      "Paper " + id,
		Abstract:   "Abstract " + id,
		Categories: models.StringList{"cs.AI"},
		Authors:    models.StringList{"Doe, Jane"},
		UpdateDate: "2023-06-15",
	}
}

func testConfig() *config.SearchConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return &cfg.Search
}

func newTestEngine(st store.Store, rk ranker.Ranker, cfg *config.SearchConfig) *Engine {
	return NewEngine(st, rk, cfg, zap.NewNop())
}

func request(term string) *models.SearchRequest {
	return &models.SearchRequest{SearchTerm: term}
}

func TestSearchModelRankNoFilters(t *testing.T) {
	st := &mockStore{papers: map[string]*models.Paper{
		"1234.0001": paper("1234.0001"),
		"1234.0002": paper("1234.0002"),
		"1234.0003": paper("1234.0003"),
	}}
	rk := &mockRanker{result: ranker.Result{
		Success:  true,
		Endpoint: "http://model",
		Candidates: []ranker.Candidate{
			{FilePath: "papers/1234.0001v2.pdf"},
			{FilePath: "papers/1234.0002.pdf"},
			{ID: "1234.0003"},
		},
	}}
	engine := newTestEngine(st, rk, testConfig())

	resp, err := engine.Search(context.Background(), request("neural networks"))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !resp.ModelUsed {
		t.Error("modelUsed should be true")
	}
	if resp.ModelEndpoint != "http://model" {
		t.Errorf("modelEndpoint = %q", resp.ModelEndpoint)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	wantScores := []float64{1.0, 2.0 / 3.0, 1.0 / 3.0}
	wantIDs := []string{"1234.0001", "1234.0002", "1234.0003"}
	for i, r := range resp.Results {
		if r.ID != wantIDs[i] {
			t.Errorf("results[%d].ID = %s, want %s", i, r.ID, wantIDs[i])
		}
		if math.Abs(r.CombinedScore-wantScores[i]) > 1e-9 {
			t.Errorf("results[%d].combinedScore = %f, want %f", i, r.CombinedScore, wantScores[i])
		}
		if r.CombinedScore != r.ModelScore {
			t.Errorf("results[%d]: combined should equal model score in this branch", i)
		}
	}
}

func TestSearchMissingCandidatesDroppedSilently(t *testing.T) {
	st := &mockStore{papers: map[string]*models.Paper{
		"1234.0001": paper("1234.0001"),
	}}
	rk := &mockRanker{result: ranker.Result{
		Success: true,
		Candidates: []ranker.Candidate{
			{ID: "ghost"},
			{ID: "1234.0001"},
		},
	}}
	engine := newTestEngine(st, rk, testConfig())

	resp, err := engine.Search(context.Background(), request("q"))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	// Rank scores are computed over the candidate list, so the surviving
	// second-ranked candidate keeps its rank-1 score.
	if resp.Results[0].ID != "1234.0001" || resp.Results[0].ModelScore != 0.5 {
		t.Errorf("unexpected survivor: %+v", resp.Results[0])
	}
}

func TestSearchDuplicateLocatorsFuseOnce(t *testing.T) {
	st := &mockStore{papers: map[string]*models.Paper{
		"1234.0001": paper("1234.0001"),
		"1234.0002": paper("1234.0002"),
	}}
	rk := &mockRanker{result: ranker.Result{
		Success: true,
		Candidates: []ranker.Candidate{
			{FilePath: "a/1234.0001v1.pdf"},
			{FilePath: "b/1234.0001v3.pdf"},
			{FilePath: "c/1234.0002.pdf"},
		},
	}}
	engine := newTestEngine(st, rk, testConfig())

	resp, err := engine.Search(context.Background(), request("q"))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "1234.0001" || resp.Results[0].ModelScore != 1.0 {
		t.Errorf("dedup should retain the earlier rank's score: %+v", resp.Results[0])
	}
}

func TestSearchFilteredIntersection(t *testing.T) {
	// Store's filtered query returns two of the three candidates plus one
	// paper the model never suggested.
	st := &mockStore{
		papers: map[string]*models.Paper{},
		hits: []store.Hit{
			{Paper: paper("1234.0002"), Score: 3.0},
			{Paper: paper("1234.0003"), Score: 2.0},
			{Paper: paper("other"), Score: 1.0},
		},
	}
	rk := &mockRanker{result: ranker.Result{
		Success: true,
		Candidates: []ranker.Candidate{
			{ID: "1234.0001"}, // filtered out by the store query
			{ID: "1234.0002"},
			{ID: "1234.0003"},
		},
	}}
	engine := newTestEngine(st, rk, testConfig())

	req := request("q")
	req.Filters.Categories = []string{"cs.AI"}
	resp, err := engine.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	// Scores are recomputed over the post-filter survivors (N=2), in model
	// rank order.
	if resp.Results[0].ID != "1234.0002" || resp.Results[0].CombinedScore != 1.0 {
		t.Errorf("first survivor: %+v", resp.Results[0])
	}
	if resp.Results[1].ID != "1234.0003" || resp.Results[1].CombinedScore != 0.5 {
		t.Errorf("second survivor: %+v", resp.Results[1])
	}
	if st.getCalls != 0 {
		t.Errorf("filtered branch should not fetch candidates individually, got %d gets", st.getCalls)
	}
}

func TestSearchFallbackWhenModelFails(t *testing.T) {
	st := &mockStore{
		papers: map[string]*models.Paper{},
		hits: []store.Hit{
			{Paper: paper("a"), Score: 2.5},
			{Paper: paper("b"), Score: 1.5},
		},
	}
	rk := &mockRanker{result: ranker.Result{Success: false, Endpoint: "http://model", Err: "timeout"}}
	engine := newTestEngine(st, rk, testConfig())

	resp, err := engine.Search(context.Background(), request("quantum"))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.ModelUsed {
		t.Error("modelUsed should be false when the model fails")
	}
	for i, r := range resp.Results {
		if r.CombinedScore != r.Score {
			t.Errorf("results[%d]: combinedScore %f != score %f in store-only branch", i, r.CombinedScore, r.Score)
		}
		if r.ModelScore != 0 {
			t.Errorf("results[%d]: modelScore should be 0", i)
		}
	}
	if resp.Results[0].ID != "a" || resp.Results[1].ID != "b" {
		t.Error("order should match store relevance ordering")
	}
}

func TestSearchFallbackWhenModelEmpty(t *testing.T) {
	st := &mockStore{hits: []store.Hit{{Paper: paper("a"), Score: 1.0}}}
	rk := &mockRanker{result: ranker.Result{Success: true, Candidates: nil}}
	engine := newTestEngine(st, rk, testConfig())

	resp, err := engine.Search(context.Background(), request("q"))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.ModelUsed {
		t.Error("zero candidates should count as model unused")
	}
	if len(resp.Results) != 1 {
		t.Errorf("expected store fallback results, got %d", len(resp.Results))
	}
}

func TestSearchBlendedPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.FusionPolicy = config.FusionBlended

	st := &mockStore{
		hits: []store.Hit{
			{Paper: paper("a"), Score: 0.4},
			{Paper: paper("b"), Score: 1.0},
			{Paper: paper("c"), Score: 0.9},
		},
	}
	rk := &mockRanker{result: ranker.Result{
		Success: true,
		Candidates: []ranker.Candidate{
			{ID: "a"}, // model score 1.0
			{ID: "b"}, // model score 0.5
		},
	}}
	engine := newTestEngine(st, rk, cfg)

	resp, err := engine.Search(context.Background(), request("q"))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	// Only the intersection survives; "c" was never suggested by the model.
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 blended results, got %d", len(resp.Results))
	}
	// b: 1.0*0.7 + 0.5*0.3 = 0.85; a: 0.4*0.7 + 1.0*0.3 = 0.58
	if resp.Results[0].ID != "b" || math.Abs(resp.Results[0].CombinedScore-0.85) > 1e-9 {
		t.Errorf("blended top result: %+v", resp.Results[0])
	}
	if resp.Results[1].ID != "a" || math.Abs(resp.Results[1].CombinedScore-0.58) > 1e-9 {
		t.Errorf("blended second result: %+v", resp.Results[1])
	}
}

func TestSearchStoreFailureIsFatal(t *testing.T) {
	st := &mockStore{searchErr: fmt.Errorf("%w: boom", store.ErrUnavailable)}
	rk := &mockRanker{result: ranker.Result{Success: true, Candidates: []ranker.Candidate{{ID: "a"}}}}
	engine := newTestEngine(st, rk, testConfig())

	_, err := engine.Search(context.Background(), request("q"))
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("store failure should propagate, got %v", err)
	}
}

func TestSearchIndividualLookupFailureSkips(t *testing.T) {
	st := &mockStore{
		papers: map[string]*models.Paper{},
		getErr: fmt.Errorf("%w: flaky", store.ErrUnavailable),
	}
	rk := &mockRanker{result: ranker.Result{Success: true, Candidates: []ranker.Candidate{{ID: "a"}, {ID: "b"}}}}
	engine := newTestEngine(st, rk, testConfig())

	resp, err := engine.Search(context.Background(), request("q"))
	if err != nil {
		t.Fatalf("individual lookup failures must not fail the request: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("all candidates failed lookup, expected 0 results, got %d", len(resp.Results))
	}
	if !resp.ModelUsed {
		t.Error("modelUsed reflects the model call, not lookup outcomes")
	}
}

func TestSearchValidationBeforeIO(t *testing.T) {
	st := &mockStore{}
	rk := &mockRanker{}
	engine := newTestEngine(st, rk, testConfig())

	zero := 0
	cases := []*models.SearchRequest{
		{SearchTerm: ""},
		{SearchTerm: "q", Page: &zero},
	}
	for _, req := range cases {
		_, err := engine.Search(context.Background(), req)
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	}
	if st.searchCalls != 0 || st.getCalls != 0 || rk.calls != 0 {
		t.Error("validation failures must not reach any data source")
	}
}

func TestSearchPaginationInvariant(t *testing.T) {
	hits := make([]store.Hit, 25)
	for i := range hits {
		hits[i] = store.Hit{Paper: paper(fmt.Sprintf("p%02d", i)), Score: float64(25 - i)}
	}
	st := &mockStore{hits: hits}
	rk := &mockRanker{result: ranker.Result{Success: false}}
	engine := newTestEngine(st, rk, testConfig())

	for _, tc := range []struct {
		page, limit, wantLen int
	}{
		{1, 10, 10},
		{3, 10, 5},
		{4, 10, 0},
		{1, 100, 25},
	} {
		req := request("q")
		req.Page = &tc.page
		req.Limit = &tc.limit
		resp, err := engine.Search(context.Background(), req)
		if err != nil {
			t.Fatalf("page %d: %v", tc.page, err)
		}
		if resp.Total != 25 {
			t.Errorf("page %d: total = %d, want 25", tc.page, resp.Total)
		}
		if len(resp.Results) != tc.wantLen {
			t.Errorf("page=%d limit=%d: len = %d, want %d", tc.page, tc.limit, len(resp.Results), tc.wantLen)
		}
	}
}

func TestSearchMaxResultsTruncatesPage(t *testing.T) {
	hits := make([]store.Hit, 10)
	for i := range hits {
		hits[i] = store.Hit{Paper: paper(fmt.Sprintf("p%d", i)), Score: float64(10 - i)}
	}
	st := &mockStore{hits: hits}
	rk := &mockRanker{result: ranker.Result{Success: false}}
	engine := newTestEngine(st, rk, testConfig())

	req := request("q")
	req.Filters.MaxResults = 3
	resp, err := engine.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("maxResults should truncate the page to 3, got %d", len(resp.Results))
	}
	if resp.Total != 10 {
		t.Errorf("total reflects the pre-slice count, got %d", resp.Total)
	}
}

func TestSearchBogusSortFallsBackToRelevance(t *testing.T) {
	st := &mockStore{hits: []store.Hit{{Paper: paper("a"), Score: 1.0}}}
	rk := &mockRanker{result: ranker.Result{Success: false}}
	engine := newTestEngine(st, rk, testConfig())

	req := request("q")
	req.SortBy = "bogus"
	req.SortOrder = "upward"
	resp, err := engine.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("bogus sort must not error: %v", err)
	}
	if resp.Sort.SortBy != models.SortRelevance || resp.Sort.SortOrder != models.OrderDesc {
		t.Errorf("sort echo = %+v", resp.Sort)
	}
}
