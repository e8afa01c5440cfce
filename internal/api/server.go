package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terra-clan/compete-engine/internal/config"
	"github.com/terra-clan/compete-engine/internal/explore"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

// Server represents the HTTP API server
type Server struct {
	config        config.ServerConfig
	router        *chi.Mux
	explorer      explore.Service
	clock         urgency.Clock
	streamRefresh time.Duration
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithClock sets the clock stamped on every request
func WithClock(c urgency.Clock) ServerOption {
	return func(s *Server) { s.clock = c }
}

// WithStreamRefresh sets how often live views are recomputed
func WithStreamRefresh(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.streamRefresh = d
		}
	}
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, explorer explore.Service, opts ...ServerOption) *Server {
	s := &Server{
		config:        cfg,
		explorer:      explorer,
		clock:         urgency.SystemClock{},
		streamRefresh: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(clockMiddleware(s.clock))

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// long-lived, so outside the request timeout
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/competitions", func(r chi.Router) {
				r.Get("/", s.handleListCompetitions)
				r.Post("/search", s.handleSearchCompetitions)
				r.Get("/upcoming", s.handleUpcoming)
				r.Get("/{id}", s.handleGetCompetition)
			})

			r.Get("/facets", s.handleFacets)
			r.Get("/quick-filters", s.handleQuickFilters)
			r.Get("/stats", s.handleStats)

			r.Route("/saved", func(r chi.Router) {
				r.Get("/", s.handleListSaved)
				r.Get("/panic", s.handlePanic)
				r.Post("/sync", s.handleSync)
				r.Put("/{id}", s.handleSave)
				r.Delete("/{id}", s.handleUnsave)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
