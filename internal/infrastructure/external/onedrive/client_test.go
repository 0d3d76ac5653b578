package onedrive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// fakeDrive is a minimal in-memory Graph drive keyed by id
type fakeDrive struct {
	mu    sync.Mutex
	items map[string]*entity.DriveItem
	paths map[string]string
	seq   int
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		items: make(map[string]*entity.DriveItem),
		paths: make(map[string]string),
	}
}

func (d *fakeDrive) put(path string, size int) *entity.DriveItem {
	d.seq++
	id := "item-" + string(rune('a'+d.seq))
	if existing, ok := d.paths[path]; ok {
		id = existing
	}
	name := path[strings.LastIndex(path, "/")+1:]
	item := &entity.DriveItem{
		ID:   id,
		Name: name,
		Size: int64(size),
		ETag: "etag-" + string(rune('a'+d.seq)),
		File: &entity.FileFacet{MimeType: "application/octet-stream"},
	}
	d.items[id] = item
	d.paths[path] = id
	return item
}

func writeGraphError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := r.URL.Path
	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(p, "/me/drive/root:/") && strings.HasSuffix(p, ":/content"):
		body, _ := io.ReadAll(r.Body)
		remote := strings.TrimSuffix(strings.TrimPrefix(p, "/me/drive/root:/"), ":/content")
		_ = json.NewEncoder(w).Encode(d.put(remote, len(body)))

	case r.Method == http.MethodPut && strings.HasPrefix(p, "/me/drive/items/") && strings.HasSuffix(p, "/content"):
		id := strings.TrimSuffix(strings.TrimPrefix(p, "/me/drive/items/"), "/content")
		item, ok := d.items[id]
		if !ok {
			writeGraphError(w, http.StatusNotFound, "itemNotFound", "The resource could not be found.")
			return
		}
		body, _ := io.ReadAll(r.Body)
		d.seq++
		item.Size = int64(len(body))
		item.ETag = "etag-" + string(rune('a'+d.seq))
		_ = json.NewEncoder(w).Encode(item)

	case r.Method == http.MethodPost && strings.HasSuffix(p, "/children"):
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		name, _ := req["name"].(string)
		d.seq++
		item := &entity.DriveItem{ID: "folder-" + name, Name: name, ETag: "etag-f", Folder: &entity.FolderFacet{}}
		d.items[item.ID] = item
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(item)

	case r.Method == http.MethodGet && strings.HasPrefix(p, "/me/drive/items/"):
		item, ok := d.items[strings.TrimPrefix(p, "/me/drive/items/")]
		if !ok {
			writeGraphError(w, http.StatusNotFound, "itemNotFound", "The resource could not be found.")
			return
		}
		_ = json.NewEncoder(w).Encode(item)

	case r.Method == http.MethodGet && strings.HasPrefix(p, "/me/drive/root:/"):
		id, ok := d.paths[strings.TrimPrefix(p, "/me/drive/root:/")]
		if !ok {
			writeGraphError(w, http.StatusNotFound, "itemNotFound", "The resource could not be found.")
			return
		}
		_ = json.NewEncoder(w).Encode(d.items[id])

	case r.Method == http.MethodDelete && strings.HasPrefix(p, "/me/drive/items/"):
		id := strings.TrimPrefix(p, "/me/drive/items/")
		item, ok := d.items[id]
		if !ok {
			writeGraphError(w, http.StatusNotFound, "itemNotFound", "The resource could not be found.")
			return
		}
		if match := r.Header.Get("If-Match"); match != "" && match != item.ETag {
			writeGraphError(w, http.StatusPreconditionFailed, "resourceModified", "ETag does not match current item's value")
			return
		}
		delete(d.items, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeGraphError(w, http.StatusBadRequest, "invalidRequest", "unsupported")
	}
}

func newTestClient(t *testing.T) (*Client, *fakeDrive) {
	t.Helper()
	drive := newFakeDrive()
	server := httptest.NewServer(drive)
	t.Cleanup(server.Close)
	return NewClientWithHTTP(server.URL, server.Client(), zap.NewNop()), drive
}

func TestClient_UploadAndGet(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	item, err := client.UploadByPath(ctx, "drive/docs/readme.md", []byte("# hello"))
	require.NoError(t, err)
	assert.Equal(t, "readme.md", item.Name)
	assert.Equal(t, int64(7), item.Size)

	byID, err := client.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ETag, byID.ETag)

	byPath, err := client.GetItemByPath(ctx, "/drive/docs/readme.md/")
	require.NoError(t, err)
	assert.Equal(t, item.ID, byPath.ID)

	updated, err := client.Upload(ctx, item.ID, []byte("# hello again"))
	require.NoError(t, err)
	assert.Equal(t, item.ID, updated.ID)
	assert.NotEqual(t, item.ETag, updated.ETag)
}

func TestClient_UploadByPath_EscapesSegments(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(entity.DriveItem{ID: "1", Name: "a b#.txt"})
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, server.Client(), zap.NewNop())
	_, err := client.UploadByPath(context.Background(), "drive/my docs/a b#.txt", []byte("x"))

	require.NoError(t, err)
	assert.Equal(t, "/me/drive/root:/drive/my%20docs/a%20b%23.txt:/content", gotPath)
}

func TestClient_MkdirByPath(t *testing.T) {
	var body map[string]interface{}
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(entity.DriveItem{ID: "f1", Name: "reports", Folder: &entity.FolderFacet{}})
	}))
	defer server.Close()
	client := NewClientWithHTTP(server.URL, server.Client(), zap.NewNop())

	t.Run("under a parent", func(t *testing.T) {
		item, err := client.MkdirByPath(context.Background(), "reports", "drive/docs")
		require.NoError(t, err)
		assert.True(t, item.IsFolder())
		assert.Equal(t, "/me/drive/root:/drive/docs:/children", gotPath)
		assert.Equal(t, "reports", body["name"])
		assert.Equal(t, "rename", body["@microsoft.graph.conflictBehavior"])
	})

	t.Run("at drive root", func(t *testing.T) {
		_, err := client.MkdirByPath(context.Background(), "reports", "")
		require.NoError(t, err)
		assert.Equal(t, "/me/drive/root/children", gotPath)
	})
}

func TestClient_DeleteItem(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	item, err := client.UploadByPath(ctx, "drive/tmp/a.txt", []byte("a"))
	require.NoError(t, err)

	t.Run("stale eTag is rejected", func(t *testing.T) {
		err := client.DeleteItem(ctx, item.ID, "etag-stale")
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrRemote))

		var remoteErr *entity.RemoteError
		require.True(t, errors.As(err, &remoteErr))
		assert.True(t, remoteErr.IsPreconditionFailed())
		assert.Equal(t, "resourceModified", remoteErr.Code)
	})

	t.Run("matching eTag deletes", func(t *testing.T) {
		require.NoError(t, client.DeleteItem(ctx, item.ID, item.ETag))
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		err := client.DeleteItem(ctx, item.ID, item.ETag)
		var remoteErr *entity.RemoteError
		require.True(t, errors.As(err, &remoteErr))
		assert.True(t, remoteErr.IsNotFound())
	})
}

func TestClient_ErrorResponses(t *testing.T) {
	t.Run("non-json error body keeps status text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gateway down", http.StatusBadGateway)
		}))
		defer server.Close()
		client := NewClientWithHTTP(server.URL, server.Client(), zap.NewNop())

		_, err := client.GetItem(context.Background(), "x")
		var remoteErr *entity.RemoteError
		require.True(t, errors.As(err, &remoteErr))
		assert.Equal(t, http.StatusBadGateway, remoteErr.StatusCode)
		assert.Equal(t, "Bad Gateway", remoteErr.Message)
	})

	t.Run("response without id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"name":"orphan"}`))
		}))
		defer server.Close()
		client := NewClientWithHTTP(server.URL, server.Client(), zap.NewNop())

		_, err := client.GetItem(context.Background(), "x")
		assert.ErrorIs(t, err, entity.ErrRemote)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		client := NewClientWithHTTP(server.URL, server.Client(), zap.NewNop())

		_, err := client.GetItem(context.Background(), "x")
		var remoteErr *entity.RemoteError
		require.True(t, errors.As(err, &remoteErr))
		assert.Zero(t, remoteErr.StatusCode)
	})

	t.Run("empty remote path", func(t *testing.T) {
		client := NewClientWithHTTP("", http.DefaultClient, zap.NewNop())
		_, err := client.UploadByPath(context.Background(), "", []byte("x"))
		assert.ErrorIs(t, err, entity.ErrRemote)
	})
}

func TestContentFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/small":
			_, _ = w.Write([]byte("hello"))
		case "/large":
			_, _ = w.Write([]byte(strings.Repeat("x", 32)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewContentFetcherWithHTTP(server.Client(), 16, zap.NewNop())
	ctx := context.Background()

	content, err := fetcher.Fetch(ctx, server.URL+"/small")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	_, err = fetcher.Fetch(ctx, server.URL+"/large")
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = fetcher.Fetch(ctx, server.URL+"/missing")
	assert.ErrorIs(t, err, entity.ErrRemote)

	_, err = fetcher.Fetch(ctx, "")
	assert.ErrorIs(t, err, entity.ErrRemote)
}
