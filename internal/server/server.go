// Package server provides the HTTP API for Kizami.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/config"
	"github.com/hyperjump/kizami/internal/ingest"
	"github.com/hyperjump/kizami/internal/keyword"
	"github.com/hyperjump/kizami/internal/retriever"
	"github.com/hyperjump/kizami/internal/storage"
	"github.com/hyperjump/kizami/internal/vector"
)

// WatchService manages watched directories. Implemented by watcher.Watcher.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Kizami API.
type Server struct {
	retriever    *retriever.Retriever
	ingestor     *ingest.Ingestor
	storage      storage.Storage
	store        vector.Store
	keywordIndex keyword.Index
	config       *config.Config
	logger       *zap.Logger
	server       *http.Server

	watch      WatchService
	configPath string
	configMu   sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(
	rt *retriever.Retriever,
	ing *ingest.Ingestor,
	st storage.Storage,
	store vector.Store,
	kw keyword.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		retriever:    rt,
		ingestor:     ing,
		storage:      st,
		store:        store,
		keywordIndex: kw,
		config:       cfg,
		logger:       logger,
	}
}

// SetWatch enables the watch management endpoints. configPath, when non-empty,
// is where directory changes are persisted.
func (s *Server) SetWatch(w WatchService, configPath string) {
	s.watch = w
	s.configPath = configPath
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/retrieve", s.handleRetrieve)
	r.Post("/api/v1/documents", s.handleIngestDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Get("/api/v1/documents/{id}/structure", s.handleDocumentStructure)
	r.Get("/api/v1/documents/{id}/chunks", s.handleDocumentChunks)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/chunks/{id}", s.handleGetChunk)
	r.Get("/api/v1/chunks/{id}/related", s.handleRelatedChunks)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
