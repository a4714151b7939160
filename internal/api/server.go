// Package api provides the HTTP API server and handlers for the BookMemo
// application. Routes are registered through huma so request validation and
// OpenAPI documentation come from the same definitions.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nistake0/bookmemo-server/internal/media/images"
	"github.com/nistake0/bookmemo-server/internal/sse"
	"github.com/nistake0/bookmemo-server/internal/store"
)

const apiVersion = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	services    *Services
	images      *images.Processor
	sseHandler  *sse.Handler
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
	authLimiter *RateLimiter
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(
	st *store.Store,
	services *Services,
	imageProcessor *images.Processor,
	sseHandler *sse.Handler,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:      st,
		services:   services,
		images:     imageProcessor,
		sseHandler: sseHandler,
		router:     router,
		logger:     logger,
		// 10 attempts per minute per IP on auth endpoints.
		authLimiter: NewRateLimiter(10, time.Minute, 5),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("BookMemo API", apiVersion)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerHistoryRoutes()
	s.registerMemoRoutes()
	s.registerSearchRoutes()
	s.registerMetadataRoutes()
	s.setupStreamingRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
	s.router.Use(authMiddleware(s.services.Auth))
	s.router.Use(RateLimitPathMiddleware(s.authLimiter, "/api/v1/auth/", s.logger))
}

// setupStreamingRoutes registers routes served outside of huma. SSE and raw
// file responses do not fit huma's body model.
func (s *Server) setupStreamingRoutes() {
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
	s.router.Get("/api/v1/books/{id}/cover/file", s.handleGetCoverFile)
}
