// Package http serves the admin and image hosting pages over gin. Handlers
// only parse forms and render results; drive logic lives in the manage
// service.
package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/application/service"
	"github.com/garyjia/driveindex/internal/domain/entity"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Logger takes alternating key/value pairs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthChecker is a component reported by /health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// AdminAuth holds the credentials guarding /admin routes
type AdminAuth struct {
	Username     string
	PasswordHash string // bcrypt
}

// ServerConfig configures the listener and the page behaviour.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// BaseURL prefixes generated view and delete links; the request host is used when empty
	BaseURL          string
	HomePath         string
	MaxUploadSize    int64
	ImageHostingMode string
	Admin            AdminAuth
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:             "0.0.0.0",
		Port:             8080,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		HomePath:         "/home",
		MaxUploadSize:    entity.MaxUploadSize,
		ImageHostingMode: entity.ImageHostingPublic,
	}
}

// Server owns the gin engine and the net/http server around it.
type Server struct {
	config        ServerConfig
	httpServer    *http.Server
	router        *gin.Engine
	manageService service.ManageService
	temp          port.TempStore
	checks        map[string]HealthChecker
	logger        Logger
}

// NewServer parses the embedded templates and registers every route.
func NewServer(
	config ServerConfig,
	manageService service.ManageService,
	temp port.TempStore,
	checks map[string]HealthChecker,
	logger Logger,
) (*Server, error) {
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = entity.MaxUploadSize
	}
	if config.HomePath == "" {
		config.HomePath = "/home"
	}
	if config.ImageHostingMode == "" {
		config.ImageHostingMode = entity.ImageHostingPublic
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	server := &Server{
		config:        config,
		router:        router,
		manageService: manageService,
		temp:          temp,
		checks:        checks,
		logger:        logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes registers the public pages, then the basic-auth /admin group.
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.config, s.manageService, s.temp, s.checks, s.logger)
	adminAuth := basicAuthMiddleware(s.config.Admin, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	// Public
	image := s.router.Group("/image", imageHostingMiddleware(s.config.ImageHostingMode, adminAuth))
	{
		image.GET("", handlers.ImageForm)
		image.POST("", handlers.UploadImage)
	}
	s.router.GET("/file/delete/:sign", handlers.DeleteItem)
	s.router.GET("/view/*path", handlers.View)

	// Admin
	admin := s.router.Group("/admin", adminAuth, sameOriginMiddleware(s.config.BaseURL, s.logger))
	{
		admin.GET("/file", handlers.FileForm)
		admin.POST("/file", handlers.UploadFile)
		admin.POST("/lock", handlers.LockFolder)
		admin.GET("/file/add", handlers.AddFileForm)
		admin.POST("/file/add", handlers.CreateFile)
		admin.GET("/file/edit/:id", handlers.EditFileForm)
		admin.POST("/file/edit/:id", handlers.UpdateFile)
		admin.POST("/folder/create", handlers.CreateFolder)
		admin.GET("/uploads", handlers.ListUploads)
	}
}

// Start binds the listener and serves until ctx is cancelled, then drains
// in-flight requests for at most ShutdownTimeout. A bind failure is
// returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the router on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.logger.Info("Serving drive index", "address", ln.Addr().String(), "image_hosting", s.config.ImageHostingMode)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Stop()
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("HTTP server stopped with error", "error", err)
		return err
	}
	return nil
}

// Stop shuts the server down gracefully. It is safe to call before Start.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router exposes the gin engine to tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}
