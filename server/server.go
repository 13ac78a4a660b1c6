// Package server provides HTTP server management and lifecycle handling for the prescription
// checking API. It includes server setup, middleware configuration, route management, and
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/giygas/rxscan-api/config"
	"github.com/giygas/rxscan-api/data"
	"github.com/giygas/rxscan-api/handlers"
	"github.com/giygas/rxscan-api/health"
	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/logging"
	"github.com/giygas/rxscan-api/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the routes are served by. Speaker, HealthChecker
// and MCP may be nil.
type Dependencies struct {
	Analyzer      handlers.Analyzer
	Validator     interfaces.InputValidator
	Speaker       interfaces.Speaker
	HealthChecker interfaces.HealthChecker
	MCP           http.Handler
}

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	router        chi.Router
	dataContainer *data.DataContainer
	config        *config.Config
	httpHandler   *handlers.HTTPHandlerImpl
	healthChecker interfaces.HealthChecker
	rateLimiter   *RateLimiter
	mcp           http.Handler
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, dataContainer *data.DataContainer, deps Dependencies) *Server {
	router := chi.NewRouter()

	healthChecker := deps.HealthChecker
	if healthChecker == nil {
		healthChecker = health.NewHealthChecker(dataContainer, nil)
	}

	server := &Server{
		server: &http.Server{
			Handler: router,
			Addr:    cfg.Address + ":" + cfg.Port,
			// Uploads and model calls take longer than plain API reads
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:        router,
		dataContainer: dataContainer,
		config:        cfg,
		healthChecker: healthChecker,
		rateLimiter:   NewRateLimiter(),
		mcp:           deps.MCP,
	}
	server.httpHandler = handlers.NewHTTPHandler(
		deps.Analyzer,
		deps.Validator,
		deps.Speaker,
		healthChecker,
		dataContainer,
		cfg.MaxRequestBody,
	)

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.IsProduction() {
		s.router.Use(BlockDirectAccessMiddleware) // Put BEFORE RealIPMiddleware to see original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "Retry-After", "Mcp-Session-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(metrics.Metrics)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Post("/ocr/check-image", s.httpHandler.CheckImage)
	s.router.Post("/ocr/check-image/{lang}", s.httpHandler.CheckImage)
	s.router.Post("/check", s.httpHandler.Check)
	s.router.Get("/resolve/{name}", s.httpHandler.Resolve)
	s.router.Post("/tts/{lang}", s.httpHandler.Speak)
	s.router.Get("/health", s.httpHandler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
	}
}

// Router returns the configured handler, mostly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	s.rateLimiter.StartCleanup(rateLimitCleanupInterval)

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port),
		"mcp", s.mcp != nil)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", mux); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}

// HealthData is a compact health summary for startup logs
type HealthData struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	LastUpdate   string `json:"last_update,omitempty"`
	NextUpdate   string `json:"next_update,omitempty"`
	IsUpdating   bool   `json:"is_updating"`
	DrugCount    int    `json:"drug_count"`
	Interactions int    `json:"interaction_count"`
}

// GetHealthData returns current health statistics
func (s *Server) GetHealthData() HealthData {
	status, _, _ := s.healthChecker.HealthCheck()
	store := s.dataContainer.GetStore()

	var uptime time.Duration
	if start := s.dataContainer.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	hd := HealthData{
		Status:       status,
		Uptime:       handlers.FormatUptimeHuman(uptime),
		IsUpdating:   s.dataContainer.IsUpdating(),
		DrugCount:    store.DrugCount(),
		Interactions: store.InteractionCount(),
	}
	if last := s.dataContainer.GetLastUpdated(); !last.IsZero() {
		hd.LastUpdate = last.Format(time.RFC3339)
	}
	if next := s.healthChecker.CalculateNextUpdate(); !next.IsZero() {
		hd.NextUpdate = next.Format(time.RFC3339)
	}
	return hd
}
