// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	envelopeHTTP "github.com/allisson/signflow/internal/envelope/http"
	"github.com/allisson/signflow/internal/metrics"
)

// Config carries router construction options.
type Config struct {
	// CORSEnabled and CORSAllowOrigins configure browser cross-origin access.
	CORSEnabled      bool
	CORSAllowOrigins string
	// MeterProvider enables per-request HTTP metrics when non-nil.
	MeterProvider    metric.MeterProvider
	MetricsNamespace string
}

// Server represents the API HTTP server.
type Server struct {
	db     *sql.DB
	config Config
	server *http.Server
	logger *slog.Logger

	envelopeHandler *envelopeHTTP.EnvelopeHandler
	signingHandler  *envelopeHTTP.SigningHandler
}

// NewServer creates a new HTTP server. The database handle is used by the
// readiness probe only.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// MountHandlers attaches the API handlers and router options. Must be called
// before Start; a server without handlers only serves the health endpoints.
func (s *Server) MountHandlers(
	config Config,
	envelopeHandler *envelopeHTTP.EnvelopeHandler,
	signingHandler *envelopeHTTP.SigningHandler,
) {
	s.config = config
	s.envelopeHandler = envelopeHandler
	s.signingHandler = signingHandler
}

// createRouter builds the Gin engine with middleware and routes.
func (s *Server) createRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(CustomLoggerMiddleware(s.logger))

	if s.config.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(s.config.MeterProvider, s.config.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(s.config.CORSEnabled, s.config.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	if s.envelopeHandler != nil {
		envelopes := v1.Group("/envelopes")
		envelopes.POST("", s.envelopeHandler.CreateHandler)
		envelopes.GET("", s.envelopeHandler.ListHandler)
		envelopes.GET("/slug/:slug", s.envelopeHandler.GetBySlugHandler)
		envelopes.GET("/:id", s.envelopeHandler.GetHandler)
		envelopes.POST("/:id/signers", s.envelopeHandler.AddSignerHandler)
		envelopes.PUT("/:id/signers", s.envelopeHandler.ReplaceSignersHandler)
		envelopes.PUT("/:id/fields", s.envelopeHandler.SetFieldsHandler)
		envelopes.POST("/:id/send", s.envelopeHandler.SendHandler)
		envelopes.GET("/:id/links", s.envelopeHandler.SigningLinksHandler)
		envelopes.PUT("/:id/reminder-settings", s.envelopeHandler.UpdateReminderSettingsHandler)
		envelopes.GET("/:id/audit-trail", s.envelopeHandler.AuditTrailHandler)
		envelopes.GET("/:id/download", s.envelopeHandler.DownloadHandler)
	}

	if s.signingHandler != nil {
		sign := v1.Group("/sign")
		sign.GET("/:token", s.signingHandler.ViewHandler)
		sign.POST("/:token/open", s.signingHandler.OpenHandler)
		sign.POST("/:token/start", s.signingHandler.StartHandler)
		sign.POST("/:token/complete", s.signingHandler.CompleteHandler)
		sign.POST("/:token/decline", s.signingHandler.DeclineHandler)
	}

	return router
}

// GetHandler returns the router, primarily for serving through httptest.
func (s *Server) GetHandler() http.Handler {
	return s.createRouter()
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.createRouter()

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can reach its dependencies.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
