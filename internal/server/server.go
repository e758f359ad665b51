// Package server provides the HTTP server and handlers.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/openverse/openverse/internal/cache"
	"github.com/openverse/openverse/internal/database"
	"github.com/openverse/openverse/internal/feed"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server is the main HTTP server.
type Server struct {
	db        database.Store
	resources cache.Provider
	poller    *feed.Poller
	registry  *prometheus.Registry
	metrics   *metrics
	router    chi.Router
	templates *template.Template
	http      *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithProvider reads the resource list from p instead of the store.
func WithProvider(p cache.Provider) Option {
	return func(s *Server) { s.resources = p }
}

// WithPoller runs p for the lifetime of the server.
func WithPoller(p *feed.Poller) Option {
	return func(s *Server) { s.poller = p }
}

// New creates a new server.
func New(db database.Store, opts ...Option) (*Server, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		db:        db,
		resources: db,
		registry:  prometheus.NewRegistry(),
		templates: tmpl,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.registry)
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages.
	r.Get("/", s.handleHome)
	r.Get("/aral", s.handleAral)
	r.Get("/aral/table", s.handleAralTable)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/resources", s.handleResources)
		r.Get("/export-opml", s.handleExportOPML)
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the poller, if any, and serves until Stop is called.
func (s *Server) Start(addr string) error {
	if s.poller != nil {
		s.poller.Start()
	}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Info().Str("address", addr).Str("database", s.db.DatabaseType()).Msg("Server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down and stops the poller.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	return err
}
