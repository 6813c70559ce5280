package models

// ScoredResult wraps a paper with per-source scores during fusion. It lives
// for one request and is never persisted.
type ScoredResult struct {
	Paper         *Paper
	StoreScore    float64
	ModelScore    float64
	CombinedScore float64
}

// FormattedResult is the wire shape of one search hit.
type FormattedResult struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Categories    []string `json:"categories"`
	Abstract      string   `json:"abstract"`
	UpdateDate    string   `json:"update_date"`
	Score         float64  `json:"score"`
	ModelScore    float64  `json:"modelScore"`
	CombinedScore float64  `json:"combinedScore"`
}

// Format converts a scored result to its wire shape.
func (r *ScoredResult) Format() FormattedResult {
	return FormattedResult{
		ID:            r.Paper.ID,
		Title:         r.Paper.Title,
		Authors:       r.Paper.Authors,
		Categories:    r.Paper.Categories,
		Abstract:      r.Paper.Abstract,
		UpdateDate:    r.Paper.UpdateDate,
		Score:         r.StoreScore,
		ModelScore:    r.ModelScore,
		CombinedScore: r.CombinedScore,
	}
}

// Pagination describes the returned page relative to the full result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives page metadata from the pre-slice total.
func NewPagination(page, limit, total int) Pagination {
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// SortSpec echoes the effective sort back to the caller.
type SortSpec struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// SearchResponse is the envelope for a search request.
type SearchResponse struct {
	Total         int               `json:"total"`
	SearchTerm    string            `json:"searchTerm"`
	Filters       SearchFilter      `json:"filters"`
	ModelUsed     bool              `json:"modelUsed"`
	ModelEndpoint string            `json:"modelEndpoint"`
	Results       []FormattedResult `json:"results"`
	Pagination    Pagination        `json:"pagination"`
	Sort          SortSpec          `json:"sort"`
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Count int    `json:"count"`
}
