package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/driveindex/internal/domain/entity"
	"github.com/garyjia/driveindex/internal/infrastructure/cryptox"
	"github.com/garyjia/driveindex/pkg/utils"
)

// EnvPrefix prefixes environment overrides of any key, e.g. DRIVEINDEX_SERVER_PORT
const EnvPrefix = "DRIVEINDEX"

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	App          AppConfig          `mapstructure:"app"`
	ImageHosting ImageHostingConfig `mapstructure:"image_hosting"`
	Admin        AdminConfig        `mapstructure:"admin"`
	OneDrive     OneDriveConfig     `mapstructure:"onedrive"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BaseURL         string        `mapstructure:"base_url"`
}

// AppConfig holds the drive layout and upload settings
type AppConfig struct {
	Root                string `mapstructure:"root"`
	ImageHostingPath    string `mapstructure:"image_hosting_path"`
	SecretKey           string `mapstructure:"secret_key"`
	DefaultLockPassword string `mapstructure:"default_lock_password"`
	MaxUploadSize       int64  `mapstructure:"max_upload_size"`
	TempDir             string `mapstructure:"temp_dir"`
	HomePath            string `mapstructure:"home_path"`
}

// ImageHostingConfig controls who may use the image upload page
type ImageHostingConfig struct {
	Mode string `mapstructure:"mode"` // public, admin or disabled
}

// AdminConfig holds the admin panel credentials
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// OneDriveConfig holds Microsoft Graph credentials
type OneDriveConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Tenant       string        `mapstructure:"tenant"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	RefreshToken string        `mapstructure:"refresh_token"`
	APIEndpoint  string        `mapstructure:"api_endpoint"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the item cache settings
type CacheConfig struct {
	Path   string        `mapstructure:"path"`
	Bucket string        `mapstructure:"bucket"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // embedded schema when empty
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file, .env and environment variables.
// envFiles that do not exist are skipped.
func Load(configPath string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFiles exports the variables of each file without overriding the environment
func loadEnvFiles(files []string) error {
	for _, f := range files {
		if err := gotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.base_url", "")

	// App defaults
	v.SetDefault("app.root", "/")
	v.SetDefault("app.image_hosting_path", "images")
	v.SetDefault("app.default_lock_password", entity.DefaultLockPassword)
	v.SetDefault("app.max_upload_size", entity.MaxUploadSize)
	v.SetDefault("app.temp_dir", "data/tmp")
	v.SetDefault("app.home_path", "/home")

	v.SetDefault("image_hosting.mode", entity.ImageHostingPublic)
	v.SetDefault("admin.username", "admin")

	// OneDrive defaults
	v.SetDefault("onedrive.tenant", "common")
	v.SetDefault("onedrive.api_endpoint", "https://graph.microsoft.com/v1.0")
	v.SetDefault("onedrive.timeout", 30*time.Second)

	// Cache defaults
	v.SetDefault("cache.path", "data/cache.db")
	v.SetDefault("cache.bucket", "items")
	v.SetDefault("cache.ttl", 10*time.Minute)

	// Database defaults
	v.SetDefault("database.path", "data/driveindex.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the secrets to their conventional variable names
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"app.secret_key":         "DRIVEINDEX_SECRET_KEY",
		"onedrive.client_id":     "ONEDRIVE_CLIENT_ID",
		"onedrive.client_secret": "ONEDRIVE_CLIENT_SECRET",
		"onedrive.refresh_token": "ONEDRIVE_REFRESH_TOKEN",
		"admin.password_hash":    "ADMIN_PASSWORD_HASH",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.BaseURL != "" {
		if err := utils.ValidateBaseURL(c.Server.BaseURL); err != nil {
			return fmt.Errorf("server.base_url: %w", err)
		}
	}

	// Validate app settings
	if len(c.App.SecretKey) < cryptox.MinSecretLength {
		return fmt.Errorf("app.secret_key must be at least %d characters", cryptox.MinSecretLength)
	}
	if c.App.MaxUploadSize <= 0 || c.App.MaxUploadSize > entity.MaxUploadSize {
		return fmt.Errorf("app.max_upload_size must be between 1 and %d", entity.MaxUploadSize)
	}
	if c.App.TempDir == "" {
		return fmt.Errorf("app.temp_dir is required")
	}
	if !strings.HasPrefix(c.App.HomePath, "/") {
		return fmt.Errorf("app.home_path must start with '/'")
	}

	switch c.ImageHosting.Mode {
	case entity.ImageHostingPublic, entity.ImageHostingAdmin, entity.ImageHostingDisabled:
	default:
		return fmt.Errorf("image_hosting.mode must be one of public, admin, disabled: %q", c.ImageHosting.Mode)
	}

	// Validate admin credentials
	if c.Admin.Username == "" {
		return fmt.Errorf("admin.username is required")
	}
	if err := utils.ValidatePasswordHash(c.Admin.PasswordHash); err != nil {
		return fmt.Errorf("admin.password_hash: %w", err)
	}

	// Validate OneDrive credentials
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
