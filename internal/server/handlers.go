package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/ranker"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("searchTerm", req.SearchTerm),
		zap.String("sortBy", req.SortBy),
	)

	response, err := s.engine.Search(r.Context(), &req)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			s.respondError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleIngestPaper(w http.ResponseWriter, r *http.Request) {
	var paper models.Paper
	if err := json.NewDecoder(r.Body).Decode(&paper); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.ingestor.IngestPaper(r.Context(), &paper)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			s.respondError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": id, "status": "indexed"})
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	paper, err := s.store.GetPaper(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "paper not found")
			return
		}
		s.logger.Error("get paper failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, paper)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.suggester.AllCategories(r.Context())
	if err != nil {
		s.logger.Error("list categories failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.suggester.AllAuthors(r.Context())
	if err != nil {
		s.logger.Error("list authors failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, authors)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		types = strings.Split(raw, ",")
	}
	suggestions, err := s.suggester.Combined(r.Context(), term, types)
	if err != nil {
		s.logger.Error("suggestions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondSuggestions(w, suggestions)
}

func (s *Server) handleAuthorSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.suggester.Authors(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		s.logger.Error("author suggestions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondSuggestions(w, suggestions)
}

func (s *Server) handleCategorySuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.suggester.Categories(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		s.logger.Error("category suggestions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondSuggestions(w, suggestions)
}

// respondSuggestions always writes a JSON array, never null, so short terms
// yield an empty list.
func (s *Server) respondSuggestions(w http.ResponseWriter, suggestions []models.Suggestion) {
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	s.respondJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleModelHealth(w http.ResponseWriter, r *http.Request) {
	health := s.ranker.CheckHealth(r.Context(), r.URL.Query().Get("endpoint"))
	if health.Status == ranker.StatusHealthy {
		s.respondJSON(w, http.StatusOK, health)
		return
	}
	s.respondJSON(w, http.StatusServiceUnavailable, health)
}

type modelQueryRequest struct {
	Query    string `json:"query"`
	Endpoint string `json:"endpoint,omitempty"`
}

func (s *Server) handleModelQuery(w http.ResponseWriter, r *http.Request) {
	var req modelQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	result := s.ranker.Query(r.Context(), req.Query, req.Endpoint)
	if result.Success {
		s.respondJSON(w, http.StatusOK, result)
		return
	}
	s.respondJSON(w, http.StatusServiceUnavailable, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.TotalPapers(r.Context())
	if err != nil {
		s.logger.Error("status: count papers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"papers": total,
		"config": map[string]interface{}{
			"model_endpoint":  s.cfg.Model.Endpoint,
			"fusion_policy":   s.cfg.Search.FusionPolicy,
			"candidate_pool":  s.cfg.Search.CandidatePool,
			"database_path":   s.cfg.Storage.DatabasePath,
			"bleve_index_path": s.cfg.Storage.BleveIndexPath,
		},
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
