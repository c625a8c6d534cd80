package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/auth"
	"github.com/sannu-sannu/sannu-server/internal/config"
	"github.com/sannu-sannu/sannu-server/internal/metrics"
	"github.com/sannu-sannu/sannu-server/internal/policy"
	"github.com/sannu-sannu/sannu-server/internal/service"
	"github.com/sannu-sannu/sannu-server/internal/storage"
	"github.com/sannu-sannu/sannu-server/internal/validation"
)

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	validator *validation.Validator
	gate      *policy.Gate

	projects      *service.ProjectService
	products      *service.ProductService
	contributions *service.ContributionService
	tenants       *service.TenantService
	users         *service.UserService

	router chi.Router
	server *http.Server
}

// NewRESTServer creates a new REST API server. opts.Store is required.
func NewRESTServer(cfg *config.Config, opts service.Options) *RESTServer {
	s := &RESTServer{
		config:        cfg,
		store:         opts.Store,
		auth:          auth.NewJWTManager(&cfg.JWT),
		validator:     validation.NewValidator(),
		gate:          policy.NewGate(opts.Store),
		projects:      service.NewProjectService(opts),
		products:      service.NewProductService(opts),
		contributions: service.NewContributionService(opts),
		tenants:       service.NewTenantService(opts),
		users:         service.NewUserService(opts),
		router:        chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Projects exposes the lifecycle service for schedulers sharing the process.
func (s *RESTServer) Projects() *service.ProjectService {
	return s.projects
}

// Products exposes the product service for schedulers sharing the process.
func (s *RESTServer) Products() *service.ProductService {
	return s.products
}

// Handler returns the root HTTP handler.
func (s *RESTServer) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	origins := s.config.API.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.API.RequestTimeout))
	s.router.Use(metrics.Middleware)
	s.router.Use(requestInfo)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, metrics.Handler())
	}

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
