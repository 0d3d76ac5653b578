package cache

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/domain/entity"
)

const (
	itemIDPrefix   = "item:id:"
	itemPathPrefix = "item:path:"
)

// CachedStorage caches item lookups of a RemoteStorage. Mutations pass
// straight through; callers invalidate with ClearAll afterwards.
type CachedStorage struct {
	next   port.RemoteStorage
	cache  *BboltCache
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachedStorage wraps next with cache
func NewCachedStorage(next port.RemoteStorage, cache *BboltCache, logger *zap.Logger) *CachedStorage {
	return &CachedStorage{
		next:   next,
		cache:  cache,
		logger: logger,
	}
}

func (s *CachedStorage) UploadByPath(ctx context.Context, remotePath string, content []byte) (*entity.DriveItem, error) {
	return s.next.UploadByPath(ctx, remotePath, content)
}

func (s *CachedStorage) Upload(ctx context.Context, id string, content []byte) (*entity.DriveItem, error) {
	return s.next.Upload(ctx, id, content)
}

func (s *CachedStorage) MkdirByPath(ctx context.Context, name, parentPath string) (*entity.DriveItem, error) {
	return s.next.MkdirByPath(ctx, name, parentPath)
}

func (s *CachedStorage) DeleteItem(ctx context.Context, id, eTag string) error {
	return s.next.DeleteItem(ctx, id, eTag)
}

// GetItem returns the item by id, from cache when fresh
func (s *CachedStorage) GetItem(ctx context.Context, id string) (*entity.DriveItem, error) {
	return s.lookup(ctx, itemIDPrefix+id, func(ctx context.Context) (*entity.DriveItem, error) {
		return s.next.GetItem(ctx, id)
	})
}

// GetItemByPath returns the item at remotePath, from cache when fresh
func (s *CachedStorage) GetItemByPath(ctx context.Context, remotePath string) (*entity.DriveItem, error) {
	return s.lookup(ctx, itemPathPrefix+remotePath, func(ctx context.Context) (*entity.DriveItem, error) {
		return s.next.GetItemByPath(ctx, remotePath)
	})
}

// lookup serves key from the cache or runs one shared fetch for all
// concurrent misses. The shared fetch is detached from any single caller's
// cancellation; each caller stops waiting when its own ctx is done. A fetch
// that overlaps a ClearAll is returned but not stored.
func (s *CachedStorage) lookup(ctx context.Context, key string, fetch func(context.Context) (*entity.DriveItem, error)) (*entity.DriveItem, error) {
	var cached entity.DriveItem
	err := s.cache.Get(key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrKeyNotFound) && !errors.Is(err, ErrEntryExpired) {
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	gen := s.cache.Generation()
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		item, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		stored, err := s.cache.SetIfGeneration(gen, key, item)
		if err != nil {
			s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		} else if !stored {
			s.logger.Debug("Cache cleared during fetch, result not stored", zap.String("key", key))
		}
		return item, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Shared callers each get their own copy
		item := *res.Val.(*entity.DriveItem)
		return &item, nil
	}
}

// Verify interface compliance
var _ port.RemoteStorage = (*CachedStorage)(nil)
