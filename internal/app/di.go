// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	checkoutHTTP "github.com/ckckckcz/pulseprotect-sub000/internal/checkout/http"
	checkoutUsecase "github.com/ckckckcz/pulseprotect-sub000/internal/checkout/usecase"
	"github.com/ckckckcz/pulseprotect-sub000/internal/config"
	"github.com/ckckckcz/pulseprotect-sub000/internal/database"
	internalHTTP "github.com/ckckckcz/pulseprotect-sub000/internal/http"
	"github.com/ckckckcz/pulseprotect-sub000/internal/metrics"
	"github.com/ckckckcz/pulseprotect-sub000/internal/session"
	sessionHTTP "github.com/ckckckcz/pulseprotect-sub000/internal/session/http"
	"github.com/ckckckcz/pulseprotect-sub000/internal/snap"
	"github.com/ckckckcz/pulseprotect-sub000/internal/token"
	tokenRepository "github.com/ckckckcz/pulseprotect-sub000/internal/token/repository"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Token tiers
	memoryTier  *token.MemoryTier
	durableTier token.Tier

	// Shared checkout state
	snapLoader *snap.Loader
	tracker    *checkoutUsecase.Tracker

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Per-session component factory
	scope *SessionScope

	// Servers
	httpServer    *internalHTTP.Server
	metricsServer *internalHTTP.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	memoryTierInit      sync.Once
	durableTierInit     sync.Once
	snapLoaderInit      sync.Once
	trackerInit         sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	scopeInit           sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MemoryTier returns the process-wide in-memory token tier.
func (c *Container) MemoryTier() *token.MemoryTier {
	c.memoryTierInit.Do(func() {
		c.memoryTier = token.NewMemoryTier(nil)
	})
	return c.memoryTier
}

// DurableTier returns the durable token tier backed by the database.
func (c *Container) DurableTier() (token.Tier, error) {
	var err error
	c.durableTierInit.Do(func() {
		c.durableTier, err = c.initDurableTier()
		if err != nil {
			c.initErrors["durableTier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["durableTier"]; exists {
		return nil, storedErr
	}
	return c.durableTier, nil
}

// SnapLoader returns the shared payment gateway loader.
func (c *Container) SnapLoader() *snap.Loader {
	c.snapLoaderInit.Do(func() {
		c.snapLoader = snap.NewLoader(
			c.config.SnapScriptURL,
			c.config.SnapClientKey,
			c.config.SnapLoadTimeout,
			c.config.SnapMaxLoadRetries,
			nil,
			c.Logger(),
		)
	})
	return c.snapLoader
}

// Tracker returns the shared checkout attempt tracker.
func (c *Container) Tracker() *checkoutUsecase.Tracker {
	c.trackerInit.Do(func() {
		c.tracker = checkoutUsecase.NewTracker()
	})
	return c.tracker
}

// MetricsProvider returns the metrics provider instance.
// Returns nil when metrics are disabled in configuration.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// Falls back to a no-op implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// Scope returns the per-session component factory.
func (c *Container) Scope() (*SessionScope, error) {
	var err error
	c.scopeInit.Do(func() {
		c.scope, err = c.initScope()
		if err != nil {
			c.initErrors["scope"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scope"]; exists {
		return nil, storedErr
	}
	return c.scope, nil
}

// HTTPServer returns the API HTTP server instance.
func (c *Container) HTTPServer() (*internalHTTP.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server instance.
// Returns nil when metrics are disabled in configuration.
func (c *Container) MetricsServer() (*internalHTTP.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initDurableTier creates the durable token tier instance.
func (c *Container) initDurableTier() (token.Tier, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for durable tier: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for durable tier: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return tokenRepository.NewMySQLTokenRepository(db, txManager), nil
	case "postgres":
		return tokenRepository.NewPostgreSQLTokenRepository(db, txManager), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initScope creates the per-session component factory with shared infrastructure.
func (c *Container) initScope() (*SessionScope, error) {
	durableTier, err := c.DurableTier()
	if err != nil {
		return nil, fmt.Errorf("failed to get durable tier for session scope: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for session scope: %w", err)
	}

	backendClient := &http.Client{Timeout: c.config.BackendRequestTimeout}

	return &SessionScope{
		cfg:             c.config,
		logger:          c.Logger(),
		fast:            c.MemoryTier(),
		durable:         durableTier,
		refresher:       session.NewBackendRefresher(c.config.BackendBaseURL, backendClient),
		backendClient:   backendClient,
		gateway:         c.SnapLoader(),
		tracker:         c.Tracker(),
		businessMetrics: businessMetrics,
	}, nil
}

// initHTTPServer creates the API HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*internalHTTP.Server, error) {
	logger := c.Logger()

	scope, err := c.Scope()
	if err != nil {
		return nil, fmt.Errorf("failed to get session scope for http server: %w", err)
	}

	sessionHandler := sessionHTTP.NewSessionHandler(scope, c.config.LoginURL, logger)
	checkoutHandler := checkoutHTTP.NewCheckoutHandler(scope, c.config.LoginURL, logger)

	options := internalHTTP.RouterOptions{
		SessionCookieSecure:     c.config.SessionCookieSecure,
		CORSEnabled:             c.config.CORSEnabled,
		CORSAllowOrigins:        c.config.CORSAllowOrigins,
		RateLimitEnabled:        c.config.RateLimitEnabled,
		RateLimitRequestsPerSec: c.config.RateLimitRequestsPerSec,
		RateLimitBurst:          c.config.RateLimitBurst,
		MetricsNamespace:        c.config.MetricsNamespace,
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	if provider != nil {
		options.MeterProvider = provider.MeterProvider()
	}

	server := internalHTTP.NewServer(
		c.config.ServerHost,
		c.config.ServerPort,
		logger,
		sessionHandler,
		checkoutHandler,
		options,
	)

	return server, nil
}

// initMetricsServer creates the metrics HTTP server.
func (c *Container) initMetricsServer() (*internalHTTP.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return internalHTTP.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
