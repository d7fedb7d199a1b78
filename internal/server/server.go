// Package server provides the HTTP API: search, file ingestion and
// storage reconciliation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/config"
	"github.com/hyperjump/awase/internal/metadata"
	"github.com/hyperjump/awase/internal/pipeline"
	"github.com/hyperjump/awase/internal/reconcile"
	"github.com/hyperjump/awase/internal/search"
)

// Server is the HTTP server for the Awase API.
type Server struct {
	search     *search.Service
	ingestor   *pipeline.Ingestor
	reconciler *reconcile.Reconciler
	meta       *metadata.Store
	config     *config.ServerConfig
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	searchSvc *search.Service,
	ingestor *pipeline.Ingestor,
	reconciler *reconcile.Reconciler,
	meta *metadata.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:     searchSvc,
		ingestor:   ingestor,
		reconciler: reconciler,
		meta:       meta,
		config:     cfg,
		logger:     logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/files", s.handleUpload)
	r.Get("/api/v1/files", s.handleListFiles)
	r.Delete("/api/v1/files", s.handleDeleteFile)
	r.Get("/api/v1/sync/report", s.handleSyncReport)
	r.Post("/api/v1/sync/repair", s.handleSyncRepair)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
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
