package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rpattn/faactracker/internal/auth"
	"github.com/rpattn/faactracker/internal/export"
	"github.com/rpattn/faactracker/internal/ingestion"
	"github.com/rpattn/faactracker/internal/middleware"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Config holds server dependencies
type Config struct {
	Addr           string
	AllowedOrigins []string
	Log            zerolog.Logger

	Regions     repository.RegionRepository
	SubRegions  repository.SubRegionRepository
	Allocations repository.AllocationRepository
	Revenues    repository.RevenueRepository

	Ingestion *ingestion.Handler
	Export    *export.Handler

	AdminPassword string
	Sessions      *auth.SessionSigner

	// Clock defaults to time.Now
	Clock func() time.Time
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Sessions == nil {
		cfg.Sessions = auth.NewSessionSigner("", 0)
	}

	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.LoggingMiddleware(s.log))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	}).Handler)

	s.router.Use(middleware.DataLoaderMiddleware(cfg.Regions))
}

func (s *Server) setupRoutes(cfg Config) {
	public := newPublicHandler(cfg.Regions, cfg.SubRegions, cfg.Allocations, cfg.Revenues, s.log)
	admin := newAdminHandler(cfg.Regions, cfg.Allocations, cfg.AdminPassword, cfg.Sessions, cfg.Clock, s.log)

	s.router.Get("/health", handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/summary", public.Summary)
		r.Get("/search", public.Search)
		r.Get("/compare", public.Compare)

		r.Route("/regions", func(r chi.Router) {
			r.Get("/", public.Regions)
			r.Get("/{region}", public.RegionDetail)
			r.Get("/{region}/subregions", public.SubRegions)
			r.Get("/{region}/subregions/{sub}", public.SubRegionDetail)
			if cfg.Export != nil {
				r.Get("/{region}/export", cfg.Export.RegionHistory)
			}
		})
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Post("/login", admin.Login)
		r.Post("/logout", admin.Logout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(cfg.Sessions, cfg.Clock))

			r.Post("/allocations", admin.SaveAllocation)
			if cfg.Ingestion != nil {
				r.Post("/ingestion/run", cfg.Ingestion.Trigger)
				r.Get("/ingestion/logs", cfg.Ingestion.Logs)
			}
		})
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
