package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// mockRemote counts lookups; mutations are unused here
type mockRemote struct {
	getItemCalls   int32
	getByPathCalls int32
	getItemFunc    func(ctx context.Context, id string) (*entity.DriveItem, error)
	release        chan struct{}
}

func (m *mockRemote) UploadByPath(ctx context.Context, remotePath string, content []byte) (*entity.DriveItem, error) {
	return &entity.DriveItem{ID: "up"}, nil
}

func (m *mockRemote) Upload(ctx context.Context, id string, content []byte) (*entity.DriveItem, error) {
	return &entity.DriveItem{ID: id}, nil
}

func (m *mockRemote) MkdirByPath(ctx context.Context, name, parentPath string) (*entity.DriveItem, error) {
	return &entity.DriveItem{ID: name}, nil
}

func (m *mockRemote) DeleteItem(ctx context.Context, id, eTag string) error {
	return nil
}

func (m *mockRemote) GetItem(ctx context.Context, id string) (*entity.DriveItem, error) {
	atomic.AddInt32(&m.getItemCalls, 1)
	if m.release != nil {
		<-m.release
	}
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, id)
	}
	return &entity.DriveItem{ID: id, Name: "file-" + id, ETag: "e1"}, nil
}

func (m *mockRemote) GetItemByPath(ctx context.Context, remotePath string) (*entity.DriveItem, error) {
	atomic.AddInt32(&m.getByPathCalls, 1)
	return &entity.DriveItem{ID: "p1", Name: remotePath, ETag: "e1"}, nil
}

func TestCachedStorage_GetItem(t *testing.T) {
	c := newTestCache(t)
	remote := &mockRemote{}
	s := NewCachedStorage(remote, c, zap.NewNop())
	ctx := context.Background()

	first, err := s.GetItem(ctx, "42")
	require.NoError(t, err)
	second, err := s.GetItem(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&remote.getItemCalls))

	c.ClearAll(ctx)
	_, err = s.GetItem(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&remote.getItemCalls))
}

func TestCachedStorage_GetItemByPath(t *testing.T) {
	c := newTestCache(t)
	remote := &mockRemote{}
	s := NewCachedStorage(remote, c, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		item, err := s.GetItemByPath(ctx, "drive/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "drive/a.txt", item.Name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&remote.getByPathCalls))
}

func TestCachedStorage_ErrorsAreNotCached(t *testing.T) {
	c := newTestCache(t)
	remote := &mockRemote{
		getItemFunc: func(ctx context.Context, id string) (*entity.DriveItem, error) {
			return nil, &entity.RemoteError{Op: "getItem", StatusCode: 404}
		},
	}
	s := NewCachedStorage(remote, c, zap.NewNop())
	ctx := context.Background()

	_, err := s.GetItem(ctx, "gone")
	assert.True(t, errors.Is(err, entity.ErrRemote))
	_, err = s.GetItem(ctx, "gone")
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&remote.getItemCalls))
}

func TestCachedStorage_ConcurrentMissesShareOneFetch(t *testing.T) {
	c := newTestCache(t)
	remote := &mockRemote{release: make(chan struct{})}
	s := NewCachedStorage(remote, c, zap.NewNop())
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*entity.DriveItem, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item, err := s.GetItem(ctx, "7")
			if err == nil {
				results[i] = item
			}
		}(i)
	}

	// Let the callers pile up behind the first fetch
	time.Sleep(50 * time.Millisecond)
	close(remote.release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&remote.getItemCalls), int32(callers))
	for _, item := range results {
		require.NotNil(t, item)
		assert.Equal(t, "7", item.ID)
	}
	// Copies, not a shared pointer
	results[0].Name = "changed"
	assert.Equal(t, "file-7", results[1].Name)
}

func waitForCalls(t *testing.T, counter *int32, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return atomic.LoadInt32(counter) >= n }, time.Second, 5*time.Millisecond)
}

func TestCachedStorage_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	c := newTestCache(t)
	remote := &mockRemote{
		release: make(chan struct{}),
		getItemFunc: func(ctx context.Context, id string) (*entity.DriveItem, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &entity.DriveItem{ID: id, Name: "file-" + id}, nil
		},
	}
	s := NewCachedStorage(remote, c, zap.NewNop())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.GetItem(firstCtx, "9")
		firstErr <- err
	}()
	waitForCalls(t, &remote.getItemCalls, 1)

	type result struct {
		item *entity.DriveItem
		err  error
	}
	second := make(chan result, 1)
	go func() {
		item, err := s.GetItem(context.Background(), "9")
		second <- result{item, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared fetch")
	}

	close(remote.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "9", res.item.ID)

	// The detached fetch still filled the cache
	_, err := s.GetItem(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&remote.getItemCalls))
}

func TestCachedStorage_FetchOverlappingClearIsNotStored(t *testing.T) {
	c := newTestCache(t)
	remote := &mockRemote{release: make(chan struct{})}
	s := NewCachedStorage(remote, c, zap.NewNop())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.GetItem(ctx, "5")
		done <- err
	}()
	waitForCalls(t, &remote.getItemCalls, 1)

	// A mutation lands while the lookup is in flight
	c.ClearAll(ctx)
	close(remote.release)
	require.NoError(t, <-done)

	count, err := c.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	remote.release = nil
	_, err = s.GetItem(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&remote.getItemCalls))
}
