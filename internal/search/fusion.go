package search

import (
	"sort"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/reconcile"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
)

// Blend weights for the alternate fusion policy.
const (
	storeWeight = 0.7
	modelWeight = 0.3
)

// storeOnlyResults scores pure store hits: the store's relevance score is
// the combined score.
func storeOnlyResults(hits []store.Hit) []models.ScoredResult {
	results := make([]models.ScoredResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.ScoredResult{
			Paper:         h.Paper,
			StoreScore:    h.Score,
			CombinedScore: h.Score,
		})
	}
	return results
}

// intersectResults keeps the filtered store hits the model also suggested,
// ordered by model rank. Rank scores are recomputed over the surviving set so
// the first surviving candidate scores highest.
func intersectResults(hits []store.Hit, keys []string) []models.ScoredResult {
	hitByID := make(map[string]store.Hit, len(hits))
	for _, h := range hits {
		hitByID[h.Paper.ID] = h
	}

	survivors := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := hitByID[k]; ok {
			survivors = append(survivors, k)
		}
	}

	scores := reconcile.Scores(survivors)
	results := make([]models.ScoredResult, 0, len(survivors))
	for _, k := range survivors {
		h := hitByID[k]
		s := scores[k]
		results = append(results, models.ScoredResult{
			Paper:         h.Paper,
			StoreScore:    h.Score,
			ModelScore:    s,
			CombinedScore: s,
		})
	}
	return results
}

// blendResults applies the weighted-sum policy: only papers present in both
// sets survive, combined as 0.7*storeScore + 0.3*modelScore and re-sorted
// descending. Model rank scores are computed over the full deduplicated
// candidate list, before intersection.
func blendResults(hits []store.Hit, keys []string) []models.ScoredResult {
	scores := reconcile.Scores(keys)

	results := make([]models.ScoredResult, 0, len(hits))
	for _, h := range hits {
		ms, ok := scores[h.Paper.ID]
		if !ok {
			continue
		}
		results = append(results, models.ScoredResult{
			Paper:         h.Paper,
			StoreScore:    h.Score,
			ModelScore:    ms,
			CombinedScore: h.Score*storeWeight + ms*modelWeight,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})
	return results
}

// paginate slices the fused result set. Totals are taken before slicing.
func paginate(results []models.ScoredResult, offset, limit int) []models.ScoredResult {
	if offset >= len(results) {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
