package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/application/service"
	httpserver "github.com/garyjia/driveindex/internal/interfaces/http"
	"github.com/garyjia/driveindex/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	remote *RemoteBundle

	// Infrastructure - Storage
	storage *StorageBundle

	// Application
	services *ServiceBundle

	// Interfaces
	server *httpserver.Server

	// Lifecycle
	// lifetime outlives the Start ctx; long-lived clients (the OAuth2
	// token source) are bound to it and it is cancelled by Close.
	lifetime       context.Context
	cancelLifetime context.CancelFunc
	mu             sync.RWMutex
	ready          atomic.Bool
	closed         atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Uploads port.UploadRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Manage service.ManageService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components. The HTTP server is built but not
// listening; call Server().Start to accept connections.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Drive client and item cache
// 3. Local storage
// 4. Application services
// 5. HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	c.lifetime, c.cancelLifetime = context.WithCancel(context.WithoutCancel(ctx))

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", c.initDatabase},
		{"remote storage", c.initRemote},
		{"local storage", c.initStorage},
		{"services", c.initServices},
		{"http server", c.initServer},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Component initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close releases all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown closes whatever has been opened so far
func (c *Container) teardown() []error {
	var errs []error

	if c.remote != nil && c.remote.Cache != nil {
		if err := c.remote.Cache.Close(); err != nil {
			c.logger.Error("Failed to close cache", zap.Error(err))
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
		c.remote = nil
	}

	if c.cancelLifetime != nil {
		c.cancelLifetime()
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.db = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	for name, check := range c.healthCheckers() {
		if check == nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
			status.Overall = false
			continue
		}
		if err := check.Health(ctx); err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			continue
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	return status
}

// healthCheckers lists the components reported by /health
func (c *Container) healthCheckers() map[string]httpserver.HealthChecker {
	checks := map[string]httpserver.HealthChecker{
		"database": nil,
		"cache":    nil,
	}
	if c.db != nil {
		checks["database"] = c.db
	}
	if c.remote != nil && c.remote.Cache != nil {
		checks["cache"] = c.remote.Cache
	}
	return checks
}

// initDatabase opens the database and creates the repositories.
func (c *Container) initDatabase(ctx context.Context) error {
	db, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = db

	repos, err := ProvideRepositories(db, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

// initRemote creates the Graph client and the item cache. The client is
// bound to the container lifetime, not to ctx.
func (c *Container) initRemote(ctx context.Context) error {
	remote, err := ProvideRemote(c.lifetime, &c.config.OneDrive, &c.config.Cache, c.logger)
	if err != nil {
		return err
	}
	c.remote = remote
	return nil
}

// initStorage creates the upload staging area.
func (c *Container) initStorage(ctx context.Context) error {
	bundle, err := ProvideStorage(&c.config.App, c.logger)
	if err != nil {
		return err
	}
	c.storage = bundle
	return nil
}

// initServices creates the application services.
func (c *Container) initServices(ctx context.Context) error {
	services, err := ProvideServices(&ServiceDeps{
		App:     &c.config.App,
		Repos:   c.repositories,
		Remote:  c.remote,
		Storage: c.storage,
		Logger:  c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// initServer creates the HTTP server.
func (c *Container) initServer(ctx context.Context) error {
	server, err := ProvideHTTPServer(c.config, c.services, c.storage.Temp, c.healthCheckers(), c.logger)
	if err != nil {
		return err
	}
	c.server = server
	return nil
}

// Getters for accessing container components

// DB returns the database.
func (c *Container) DB() *database.DB {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Remote returns the drive client bundle.
func (c *Container) Remote() *RemoteBundle {
	return c.remote
}

// Storage returns the local storage bundle.
func (c *Container) Storage() *StorageBundle {
	return c.storage
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Server returns the HTTP server.
func (c *Container) Server() *httpserver.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service and http Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
