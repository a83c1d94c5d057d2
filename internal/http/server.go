package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	checkoutHTTP "github.com/ckckckcz/pulseprotect-sub000/internal/checkout/http"
	"github.com/ckckckcz/pulseprotect-sub000/internal/metrics"
	sessionHTTP "github.com/ckckckcz/pulseprotect-sub000/internal/session/http"
)

// RouterOptions carries the cross-cutting settings applied to the router.
type RouterOptions struct {
	SessionCookieSecure bool

	CORSEnabled      bool
	CORSAllowOrigins string

	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int

	// MeterProvider enables HTTP metrics collection when non-nil.
	MeterProvider    metric.MeterProvider
	MetricsNamespace string
}

// Server represents the API HTTP server.
type Server struct {
	server          *http.Server
	logger          *slog.Logger
	sessionHandler  *sessionHTTP.SessionHandler
	checkoutHandler *checkoutHTTP.CheckoutHandler
	options         RouterOptions
}

// NewServer creates a new API HTTP server with all route handlers.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	sessionHandler *sessionHTTP.SessionHandler,
	checkoutHandler *checkoutHTTP.CheckoutHandler,
	options RouterOptions,
) *Server {
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:          logger,
		sessionHandler:  sessionHandler,
		checkoutHandler: checkoutHandler,
		options:         options,
	}
}

// buildRouter assembles the gin engine with middleware and routes. The
// lifecycle context drives the readiness endpoint.
func (s *Server) buildRouter(ctx context.Context) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(
		s.options.CORSEnabled,
		s.options.CORSAllowOrigins,
		s.logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if s.options.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(s.options.MeterProvider, s.options.MetricsNamespace))
	}

	// Health and readiness endpoints
	router.GET("/health", HealthHandler)
	router.GET("/ready", ReadinessHandler(ctx))

	v1 := router.Group("/v1")

	// The gateway webhook carries no browser session
	v1.POST("/checkout/notification", s.checkoutHandler.NotificationHandler)

	// Everything else is scoped to a browser session
	scoped := v1.Group("", sessionHTTP.SessionIDMiddleware(s.options.SessionCookieSecure, s.logger))

	scoped.POST("/session", s.sessionHandler.StoreHandler)
	scoped.GET("/session", s.sessionHandler.GetHandler)
	scoped.DELETE("/session", s.sessionHandler.DeleteHandler)

	checkout := scoped.Group("/checkout")
	if s.options.RateLimitEnabled {
		checkout.Use(RateLimitMiddleware(
			s.options.RateLimitRequestsPerSec,
			s.options.RateLimitBurst,
			s.logger,
		))
	}
	checkout.POST("", s.checkoutHandler.PayHandler)
	checkout.GET("/:order_id", s.checkoutHandler.StatusHandler)
	checkout.POST("/:order_id/close", s.checkoutHandler.CloseHandler)

	return router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler(ctx context.Context) http.Handler {
	return s.buildRouter(ctx)
}

// Start starts the API HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.buildRouter(ctx)

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
