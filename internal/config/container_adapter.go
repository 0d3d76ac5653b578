package config

import (
	"github.com/garyjia/driveindex/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			BaseURL:         c.Server.BaseURL,
			HomePath:        c.App.HomePath,
		},
		App: container.AppConfig{
			Root:                c.App.Root,
			ImageHostingPath:    c.App.ImageHostingPath,
			ImageHostingMode:    c.ImageHosting.Mode,
			SecretKey:           c.App.SecretKey,
			DefaultLockPassword: c.App.DefaultLockPassword,
			MaxUploadSize:       c.App.MaxUploadSize,
			TempDir:             c.App.TempDir,
		},
		Admin: container.AdminConfig{
			Username:     c.Admin.Username,
			PasswordHash: c.Admin.PasswordHash,
		},
		OneDrive: container.OneDriveConfig{
			ClientID:     c.OneDrive.ClientID,
			ClientSecret: c.OneDrive.ClientSecret,
			Tenant:       c.OneDrive.Tenant,
			RedirectURI:  c.OneDrive.RedirectURI,
			RefreshToken: c.OneDrive.RefreshToken,
			APIEndpoint:  c.OneDrive.APIEndpoint,
			Timeout:      c.OneDrive.Timeout,
		},
		Cache: container.CacheConfig{
			Path:   c.Cache.Path,
			Bucket: c.Cache.Bucket,
			TTL:    c.Cache.TTL,
		},
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
	}
}
