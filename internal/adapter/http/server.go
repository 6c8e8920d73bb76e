package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/codec"
	"github.com/couchcryptid/sea-ice-obs/internal/importer"
	"github.com/couchcryptid/sea-ice-obs/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Importer is the import/export service behind the API.
type Importer interface {
	sharedobs.ReadinessChecker
	Import(ctx context.Context, req importer.ImportRequest) (importer.ImportReport, error)
	Export(ctx context.Context, voyageID string, format codec.Format) (importer.Export, error)
	Preview(filename, content string) codec.ImportResult
}

// Server exposes the observation API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	importer   Importer
	store      store.Store
	maxUpload  int64
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Uploaded files larger than maxUpload
// bytes are refused.
func NewServer(addr string, imp Importer, st store.Store, maxUpload int64, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		importer:  imp,
		store:     st,
		maxUpload: maxUpload,
		logger:    logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(imp))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/voyages", func(r chi.Router) {
		r.Post("/", s.handleCreateVoyage)
		r.Get("/", s.handleListVoyages)
		r.Get("/{id}", s.handleGetVoyage)
		r.Post("/{id}/imports", s.handleImport)
		r.Get("/{id}/observations", s.handleListObservations)
		r.Get("/{id}/export", s.handleExport)
	})
	r.Post("/imports", s.handleImport)
	r.Post("/imports/preview", s.handlePreview)
	r.Get("/observations/{id}", s.handleGetObservation)
	r.Delete("/observations/{id}", s.handleDeleteObservation)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
