package integration

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/trihuynhnhut0107/SciFind/internal/config"
	"github.com/trihuynhnhut0107/SciFind/internal/ingest"
	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/ranker"
	"github.com/trihuynhnhut0107/SciFind/internal/search"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
)

var corpus = []*models.Paper{
	{
		ID:         "2101.00001",
		Title:      "Deep Neural Networks for Image Classification",
		Abstract:   "Convolutional neural networks applied to large-scale vision benchmarks.",
		Authors:    models.StringList{"Chen, Wei", "Doe, Jane"},
		Categories: models.StringList{"cs.CV", "cs.AI"},
		UpdateDate: "2021-04-12",
	},
	{
		ID:         "2102.00002",
		Title:      "Sparse Neural Networks at Scale",
		Abstract:   "Training sparse neural networks with structured pruning.",
		Authors:    models.StringList{"Smith, Alan"},
		Categories: models.StringList{"cs.LG", "cs.AI"},
		UpdateDate: "2021-09-30",
	},
	{
		ID:         "2103.00003",
		Title:      "Graph Neural Networks for Molecules",
		Abstract:   "Message passing networks for molecular property prediction.",
		Authors:    models.StringList{"Doe, Jane"},
		Categories: models.StringList{"cs.LG"},
		UpdateDate: "2022-02-18",
	},
	{
		ID:         "2104.00004",
		Title:      "Quantum Error Correction Codes",
		Abstract:   "Stabilizer codes and surface codes for fault tolerance.",
		Authors:    models.StringList{"Nguyen, Minh"},
		Categories: models.StringList{"quant-ph"},
		UpdateDate: "2022-07-01",
	},
}

func setup(t *testing.T, modelEndpoint string) *search.Engine {
	t.Helper()
	ps, err := store.NewMemoryPaperStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { ps.Close() })

	logger := zap.NewNop()
	ingestor := ingest.NewIngestor(ps, logger)
	for _, p := range corpus {
		if _, err := ingestor.IngestPaper(context.Background(), p); err != nil {
			t.Fatalf("ingest %s: %v", p.ID, err)
		}
	}

	cfg := &config.Config{Model: config.ModelConfig{
		Endpoint:             modelEndpoint,
		TimeoutSeconds:       2,
		HealthTimeoutSeconds: 1,
	}}
	config.ApplyDefaults(cfg)

	rk := ranker.NewClient(&cfg.Model, logger)
	return search.NewEngine(ps, rk, &cfg.Search, logger)
}

func modelServer(t *testing.T, candidates []ranker.Candidate) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candidates)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchModelRanked(t *testing.T) {
	srv := modelServer(t, []ranker.Candidate{
		{FilePath: "papers/2103.00003v2.pdf"},
		{FilePath: "papers/2101.00001.pdf"},
		{FilePath: "papers/2102.00002v1.pdf"},
	})
	engine := setup(t, srv.URL)

	resp, err := engine.Search(context.Background(), &models.SearchRequest{
		SearchTerm: "neural networks",
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !resp.ModelUsed {
		t.Fatal("model should be used")
	}
	wantIDs := []string{"2103.00003", "2101.00001", "2102.00002"}
	wantScores := []float64{1.0, 2.0 / 3.0, 1.0 / 3.0}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}
	for i, r := range resp.Results {
		if r.ID != wantIDs[i] {
			t.Errorf("results[%d].ID = %s, want %s", i, r.ID, wantIDs[i])
		}
		if math.Abs(r.CombinedScore-wantScores[i]) > 1e-9 {
			t.Errorf("results[%d].combinedScore = %f, want %f", i, r.CombinedScore, wantScores[i])
		}
	}
}

func TestSearchModelRankedWithFilter(t *testing.T) {
	srv := modelServer(t, []ranker.Candidate{
		{FilePath: "papers/2103.00003.pdf"}, // cs.LG only, filtered out below
		{FilePath: "papers/2101.00001.pdf"},
		{FilePath: "papers/2102.00002.pdf"},
	})
	engine := setup(t, srv.URL)

	resp, err := engine.Search(context.Background(), &models.SearchRequest{
		SearchTerm: "neural networks",
		Filters:    models.SearchFilter{Categories: []string{"cs.AI"}},
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2 after category filter", len(resp.Results))
	}
	// Rank scores are over the two survivors: first 1.0, second 0.5.
	if resp.Results[0].ID != "2101.00001" || resp.Results[0].CombinedScore != 1.0 {
		t.Errorf("first: %+v", resp.Results[0])
	}
	if resp.Results[1].ID != "2102.00002" || resp.Results[1].CombinedScore != 0.5 {
		t.Errorf("second: %+v", resp.Results[1])
	}
}

func TestSearchFallsBackWhenModelUnreachable(t *testing.T) {
	engine := setup(t, "http://127.0.0.1:1/search")

	resp, err := engine.Search(context.Background(), &models.SearchRequest{
		SearchTerm: "quantum",
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.ModelUsed {
		t.Error("modelUsed should be false when the model is unreachable")
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "2104.00004" {
		t.Fatalf("results = %v", resp.Results)
	}
	if resp.Results[0].CombinedScore != resp.Results[0].Score {
		t.Error("store-only results should carry the store score as combined")
	}
}

func TestSearchDateSortFallback(t *testing.T) {
	engine := setup(t, "http://127.0.0.1:1/search")

	resp, err := engine.Search(context.Background(), &models.SearchRequest{
		SearchTerm: "neural networks",
		SortBy:     models.SortDate,
		SortOrder:  models.OrderDesc,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}
	if resp.Results[0].ID != "2103.00003" {
		t.Errorf("newest first: got %s", resp.Results[0].ID)
	}
	if resp.Results[2].ID != "2101.00001" {
		t.Errorf("oldest last: got %s", resp.Results[2].ID)
	}
}

func TestSearchPaginationAcrossPages(t *testing.T) {
	srv := modelServer(t, []ranker.Candidate{
		{ID: "2101.00001"},
		{ID: "2102.00002"},
		{ID: "2103.00003"},
	})
	engine := setup(t, srv.URL)

	page, limit := 2, 2
	resp, err := engine.Search(context.Background(), &models.SearchRequest{
		SearchTerm: "neural networks",
		Page:       &page,
		Limit:      &limit,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "2103.00003" {
		t.Fatalf("page 2: %v", resp.Results)
	}
	if !resp.Pagination.HasPrev || resp.Pagination.HasNext {
		t.Errorf("pagination = %+v", resp.Pagination)
	}
	if resp.Pagination.TotalPages != 2 {
		t.Errorf("totalPages = %d, want 2", resp.Pagination.TotalPages)
	}
}
