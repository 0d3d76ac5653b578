// Package container provides dependency injection and lifecycle management
// for the drive index server following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Server configuration
	Server ServerConfig

	// App holds drive layout and upload settings
	App AppConfig

	// Admin panel credentials
	Admin AdminConfig

	// OneDrive (Microsoft Graph) configuration
	OneDrive OneDriveConfig

	// Cache configuration
	Cache CacheConfig

	// Database configuration
	Database DatabaseConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// BaseURL prefixes generated links; the request host is used when empty
	BaseURL string

	// HomePath is the listing page browser forms return to
	HomePath string
}

// AppConfig holds drive layout and upload settings.
type AppConfig struct {
	Root                string
	ImageHostingPath    string
	ImageHostingMode    string
	SecretKey           string
	DefaultLockPassword string
	MaxUploadSize       int64

	// TempDir stages uploads between the request and the remote call
	TempDir string
}

// AdminConfig holds the admin panel credentials.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// OneDriveConfig holds Graph API settings.
type OneDriveConfig struct {
	ClientID     string
	ClientSecret string
	Tenant       string
	RedirectURI  string
	RefreshToken string
	APIEndpoint  string
	Timeout      time.Duration
}

// CacheConfig holds bbolt item cache settings.
type CacheConfig struct {
	Path   string
	Bucket string
	TTL    time.Duration
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded schema when set
	MigrationsDir string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			HomePath:        "/home",
		},
		App: AppConfig{
			Root:                "/",
			ImageHostingPath:    "images",
			ImageHostingMode:    entity.ImageHostingPublic,
			DefaultLockPassword: entity.DefaultLockPassword,
			MaxUploadSize:       entity.MaxUploadSize,
			TempDir:             "data/tmp",
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		OneDrive: OneDriveConfig{
			Tenant:  "common",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Path:   "data/cache.db",
			Bucket: "items",
			TTL:    10 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:            "data/driveindex.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.App.SecretKey == "" {
		return fmt.Errorf("app.secret_key is required")
	}
	if c.App.TempDir == "" {
		return fmt.Errorf("app.temp_dir is required")
	}

	// Validate OneDrive configuration
	if c.OneDrive.ClientID == "" {
		return fmt.Errorf("onedrive.client_id is required")
	}
	if c.OneDrive.RefreshToken == "" {
		return fmt.Errorf("onedrive.refresh_token is required")
	}

	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}
