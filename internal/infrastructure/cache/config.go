package cache

import (
	"fmt"
	"os"
	"time"
)

// Config holds bbolt cache configuration
type Config struct {
	Path   string        // Path to bbolt DB file
	Bucket string        // Name of the bucket
	TTL    time.Duration // Lifetime of a cached entry
	Mode   os.FileMode   // File open mode
}

// ApplyDefaults sets default values if not provided
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "./data/cache.db"
	}
	if c.Bucket == "" {
		c.Bucket = "items"
	}
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
	if c.Mode == 0 {
		c.Mode = 0600
	}
}

// Validate validates the cache configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("cache path is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("cache bucket is required")
	}
	return nil
}
