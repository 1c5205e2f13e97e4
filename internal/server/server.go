// Package server exposes the publish workflow over HTTP: the JSON publish
// endpoint, a minimal form page, health and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"igpublisher/pkg/logger"
	"igpublisher/pkg/metrics"
	"igpublisher/pkg/models"
)

// PublishPath is the publish endpoint
const PublishPath = "/api/instagram/publish"

// Publisher runs one publish attempt
type Publisher interface {
	Publish(ctx context.Context, req models.PublishRequest) (*models.PublishResult, error)
}

// Server represents the HTTP server
type Server struct {
	router          *gin.Engine
	server          *http.Server
	publisher       Publisher
	logger          logger.Logger
	metrics         *metrics.Collector
	shutdownTimeout time.Duration
}

// Config holds HTTP server configuration
type Config struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	Publisher       Publisher
	Logger          logger.Logger
	Metrics         *metrics.Collector
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "http")

	router := gin.New()
	router.Use(recovery(log))
	router.Use(requestID())
	router.Use(requestLogger(log, cfg.Metrics))
	router.Use(corsMiddleware(cfg.AllowedOrigins))
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	s := &Server{
		router:          router,
		publisher:       cfg.Publisher,
		logger:          log,
		metrics:         cfg.Metrics,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes configures routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.router.POST(PublishPath, s.handlePublish)
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	logger.LogComponentStart(s.logger, "http", map[string]interface{}{"addr": s.server.Addr})

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	logger.LogComponentStop(s.logger, "http", "shutdown complete")
	return nil
}

// Run serves until ctx is done, then shuts down within the configured
// shutdown timeout. In-flight publishes get that long to finish.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
