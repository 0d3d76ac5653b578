package container

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/application/service"
	"github.com/garyjia/driveindex/internal/domain/remotepath"
	"github.com/garyjia/driveindex/internal/infrastructure/cache"
	"github.com/garyjia/driveindex/internal/infrastructure/cryptox"
	"github.com/garyjia/driveindex/internal/infrastructure/external/onedrive"
	"github.com/garyjia/driveindex/internal/infrastructure/imaging"
	"github.com/garyjia/driveindex/internal/infrastructure/persistence/repository"
	"github.com/garyjia/driveindex/internal/infrastructure/storage"
	httpserver "github.com/garyjia/driveindex/internal/interfaces/http"
	"github.com/garyjia/driveindex/pkg/database"
)

// RemoteBundle holds the drive client and the cache in front of it.
type RemoteBundle struct {
	Client  *onedrive.Client
	Cache   *cache.BboltCache
	Storage port.RemoteStorage
	Fetcher port.ContentFetcher
}

// StorageBundle holds local staging and inspection components.
type StorageBundle struct {
	Temp   port.TempStore
	Images port.ImageInspector
}

// ProvideDatabase opens the SQLite database and runs pending migrations.
// The embedded schema is used unless cfg.MigrationsDir is set.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*database.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	var migrations fs.FS = database.Migrations
	if cfg.MigrationsDir != "" {
		migrations = os.DirFS(cfg.MigrationsDir)
	}

	if err := database.NewMigrator(db, logger).RunMigrations(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Uploads: repository.NewUploadRepository(db.DB, logger),
	}, nil
}

// ProvideRemote creates the Graph client, the content fetcher and the item cache.
// Storage is the client wrapped by the cache; services use it for every call.
func ProvideRemote(ctx context.Context, cfg *OneDriveConfig, cacheCfg *CacheConfig, logger *zap.Logger) (*RemoteBundle, error) {
	if cfg == nil || cacheCfg == nil {
		return nil, fmt.Errorf("onedrive and cache config are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := onedrive.NewClient(ctx, onedrive.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Tenant:       cfg.Tenant,
		RedirectURI:  cfg.RedirectURI,
		RefreshToken: cfg.RefreshToken,
		Endpoint:     cfg.APIEndpoint,
		Timeout:      cfg.Timeout,
	}, logger.Named("onedrive"))

	itemCache, err := cache.NewBboltCache(cache.Config{
		Path:   cacheCfg.Path,
		Bucket: cacheCfg.Bucket,
		TTL:    cacheCfg.TTL,
	}, logger.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	return &RemoteBundle{
		Client:  client,
		Cache:   itemCache,
		Storage: cache.NewCachedStorage(client, itemCache, logger.Named("cache")),
		Fetcher: onedrive.NewContentFetcher(cfg.Timeout, onedrive.DefaultMaxContentSize, logger.Named("onedrive")),
	}, nil
}

// ProvideStorage creates the upload staging area and the image inspector.
func ProvideStorage(cfg *AppConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := os.MkdirAll(cfg.TempDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &StorageBundle{
		Temp:   storage.NewTempFileStorage(cfg.TempDir, logger),
		Images: imaging.NewInspector(),
	}, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	App     *AppConfig
	Repos   *RepositoryBundle
	Remote  *RemoteBundle
	Storage *StorageBundle
	Logger  *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.App == nil || deps.Repos == nil || deps.Remote == nil || deps.Storage == nil {
		return nil, fmt.Errorf("app config, repositories, remote and storage are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	codec, err := cryptox.NewSignedCodec(deps.App.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	manage := service.NewManageService(service.ManageConfig{
		MaxUploadSize:       deps.App.MaxUploadSize,
		DefaultLockPassword: deps.App.DefaultLockPassword,
	}, service.ManageDeps{
		Remote:  deps.Remote.Storage,
		Fetcher: deps.Remote.Fetcher,
		Temp:    deps.Storage.Temp,
		Cache:   deps.Remote.Cache,
		Codec:   codec,
		Images:  deps.Storage.Images,
		Uploads: deps.Repos.Uploads,
		Paths:   remotepath.NewBuilder(deps.App.Root, deps.App.ImageHostingPath),
		Logger:  &zapLoggerAdapter{logger: deps.Logger.Named("manage")},
	})

	return &ServiceBundle{Manage: manage}, nil
}

// ProvideHTTPServer creates the HTTP server over the manage service.
func ProvideHTTPServer(cfg *Config, services *ServiceBundle, temp port.TempStore, checks map[string]httpserver.HealthChecker, logger *zap.Logger) (*httpserver.Server, error) {
	if cfg == nil || services == nil {
		return nil, fmt.Errorf("config and services are required")
	}

	serverCfg := httpserver.DefaultServerConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	if cfg.Server.ShutdownTimeout > 0 {
		serverCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	serverCfg.BaseURL = cfg.Server.BaseURL
	if cfg.Server.HomePath != "" {
		serverCfg.HomePath = cfg.Server.HomePath
	}
	if cfg.App.MaxUploadSize > 0 {
		serverCfg.MaxUploadSize = cfg.App.MaxUploadSize
	}
	if cfg.App.ImageHostingMode != "" {
		serverCfg.ImageHostingMode = cfg.App.ImageHostingMode
	}
	serverCfg.Admin = httpserver.AdminAuth{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}

	return httpserver.NewServer(serverCfg, services.Manage, temp, checks, &zapLoggerAdapter{logger: logger.Named("http")})
}
