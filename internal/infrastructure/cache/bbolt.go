package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/application/port"
)

// entry wraps a cached value with its expiry
type entry struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// BboltCache is a single-bucket key/value cache with per-entry TTL
type BboltCache struct {
	db     *bbolt.DB
	bucket []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	// gen is bumped by every ClearAll, inside its write transaction
	gen atomic.Uint64
}

// NewBboltCache opens (or creates) the cache file described by cfg
func NewBboltCache(cfg Config, logger *zap.Logger) (*BboltCache, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := bbolt.Open(cfg.Path, cfg.Mode, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cfg.Bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Info("Cache opened",
		zap.String("path", cfg.Path),
		zap.String("bucket", cfg.Bucket),
		zap.Duration("ttl", cfg.TTL))

	return &BboltCache{
		db:     db,
		bucket: []byte(cfg.Bucket),
		ttl:    cfg.TTL,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Close closes the underlying database
func (c *BboltCache) Close() error {
	return c.db.Close()
}

// Set stores value under key for the configured TTL
func (c *BboltCache) Set(key string, value interface{}) error {
	_, err := c.put(key, value, func() bool { return true })
	return err
}

// Generation identifies the cache contents between two ClearAll calls.
func (c *BboltCache) Generation() uint64 {
	return c.gen.Load()
}

// SetIfGeneration stores value only if no ClearAll ran since gen was read.
// It reports whether the value was written.
func (c *BboltCache) SetIfGeneration(gen uint64, key string, value interface{}) (bool, error) {
	return c.put(key, value, func() bool { return c.gen.Load() == gen })
}

// put writes key when ok holds. ok runs inside the write transaction, so
// it cannot interleave with ClearAll.
func (c *BboltCache) put(key string, value interface{}, ok func() bool) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode cache value: %w", err)
	}
	val, err := json.Marshal(entry{ExpiresAt: c.now().Add(c.ttl), Value: raw})
	if err != nil {
		return false, fmt.Errorf("failed to encode cache entry: %w", err)
	}

	written := false
	err = c.db.Update(func(tx *bbolt.Tx) error {
		if !ok() {
			return nil
		}
		b := tx.Bucket(c.bucket)
		if b == nil {
			return ErrBucketNotFound
		}
		if err := b.Put([]byte(key), val); err != nil {
			return err
		}
		written = true
		return nil
	})
	return written, err
}

// Get decodes the value under key into out. Missing keys return
// ErrKeyNotFound and stale ones ErrEntryExpired.
func (c *BboltCache) Get(key string, out interface{}) error {
	var e entry
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return ErrBucketNotFound
		}
		val := b.Get([]byte(key))
		if val == nil {
			return ErrKeyNotFound
		}
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return err
	}

	if c.now().After(e.ExpiresAt) {
		return ErrEntryExpired
	}
	return json.Unmarshal(e.Value, out)
}

// ClearAll drops every entry by recreating the bucket
func (c *BboltCache) ClearAll(ctx context.Context) {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		c.gen.Add(1)
		if tx.Bucket(c.bucket) != nil {
			if err := tx.DeleteBucket(c.bucket); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(c.bucket)
		return err
	})
	if err != nil {
		c.logger.Error("Failed to clear cache", zap.Error(err))
		return
	}
	c.logger.Debug("Cache cleared")
}

// Count returns the number of stored entries, expired ones included
func (c *BboltCache) Count() (int, error) {
	count := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return ErrBucketNotFound
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

// Ping checks that the cache bucket is readable
func (c *BboltCache) Ping() error {
	return c.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(c.bucket) == nil {
			return ErrBucketNotFound
		}
		return nil
	})
}

// Health reports whether the cache is usable
func (c *BboltCache) Health(ctx context.Context) error {
	return c.Ping()
}

// Verify interface compliance
var _ port.CacheInvalidator = (*BboltCache)(nil)
