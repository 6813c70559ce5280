// Package server provides the HTTP API for SciFind.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/trihuynhnhut0107/SciFind/internal/config"
	"github.com/trihuynhnhut0107/SciFind/internal/ingest"
	"github.com/trihuynhnhut0107/SciFind/internal/ranker"
	"github.com/trihuynhnhut0107/SciFind/internal/search"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
	"github.com/trihuynhnhut0107/SciFind/internal/suggest"
)

// Server is the HTTP server for the SciFind API.
type Server struct {
	engine    *search.Engine
	suggester *suggest.Aggregator
	ranker    ranker.Ranker
	store     store.Store
	ingestor  *ingest.Ingestor
	cfg       *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	suggester *suggest.Aggregator,
	rk ranker.Ranker,
	st store.Store,
	ingestor *ingest.Ingestor,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:    engine,
		suggester: suggester,
		ranker:    rk,
		store:     st,
		ingestor:  ingestor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/papers/search", s.handleSearch)
		r.Post("/papers", s.handleIngestPaper)
		r.Get("/papers/categories", s.handleCategories)
		r.Get("/papers/authors", s.handleAuthors)
		r.Get("/papers/{id}", s.handleGetPaper)

		r.Get("/suggestions", s.handleSuggestions)
		r.Get("/suggestions/authors", s.handleAuthorSuggestions)
		r.Get("/suggestions/categories", s.handleCategorySuggestions)

		r.Get("/model/health", s.handleModelHealth)
		r.Post("/model/query", s.handleModelQuery)
	})
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
