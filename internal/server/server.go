// Package server exposes the HTTP API: document upload, listing and detail,
// job reset, export, and health.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/docpipeline/internal/cache"
	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/export"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
	"github.com/joseph-ayodele/docpipeline/internal/storage"
)

// HealthFunc reports backing-store health. Wired to the database ping.
type HealthFunc func(ctx context.Context) error

// Server bundles the API handlers and their dependencies.
type Server struct {
	logger   *slog.Logger
	cfg      *common.Config
	blobs    storage.BlobStorage
	docs     repository.DocumentRepository
	jobs     repository.JobRepository
	results  repository.ResultRepository
	cache    cache.Cache
	exporter *export.Service
	health   HealthFunc
}

func New(
	logger *slog.Logger,
	cfg *common.Config,
	blobs storage.BlobStorage,
	docs repository.DocumentRepository,
	jobs repository.JobRepository,
	results repository.ResultRepository,
	c cache.Cache,
	exporter *export.Service,
	health HealthFunc,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &Server{
		logger:   logger,
		cfg:      cfg,
		blobs:    blobs,
		docs:     docs,
		jobs:     jobs,
		results:  results,
		cache:    c,
		exporter: exporter,
		health:   health,
	}
}

// Router builds the chi router with the middleware stack and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger(s.logger))
	r.Use(recovery(s.logger))

	r.Get("/api/v1/health", s.handleHealth)

	r.Post("/api/v1/documents", s.handleUpload)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{documentID}", s.handleGetDocument)

	r.Post("/api/v1/jobs/{jobID}/reset", s.handleResetJob)

	r.Get("/api/v1/export/documents.xlsx", s.handleExport)

	return r
}
