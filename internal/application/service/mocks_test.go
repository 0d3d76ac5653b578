package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// Mock remote storage
type uploadCall struct {
	Path    string
	Content string
}

type mockRemote struct {
	mu                sync.Mutex
	uploads           []uploadCall
	uploadByPathFunc  func(ctx context.Context, remotePath string, content []byte) (*entity.DriveItem, error)
	uploadFunc        func(ctx context.Context, id string, content []byte) (*entity.DriveItem, error)
	mkdirByPathFunc   func(ctx context.Context, name, parentPath string) (*entity.DriveItem, error)
	getItemFunc       func(ctx context.Context, id string) (*entity.DriveItem, error)
	getItemByPathFunc func(ctx context.Context, remotePath string) (*entity.DriveItem, error)
	deleteItemFunc    func(ctx context.Context, id, eTag string) error
}

func (m *mockRemote) UploadByPath(ctx context.Context, remotePath string, content []byte) (*entity.DriveItem, error) {
	m.mu.Lock()
	m.uploads = append(m.uploads, uploadCall{Path: remotePath, Content: string(content)})
	m.mu.Unlock()
	if m.uploadByPathFunc != nil {
		return m.uploadByPathFunc(ctx, remotePath, content)
	}
	name := remotePath[strings.LastIndex(remotePath, "/")+1:]
	return &entity.DriveItem{
		ID:                   "item-1",
		Name:                 name,
		Size:                 int64(len(content)),
		ETag:                 `"{ETAG-1},1"`,
		LastModifiedDateTime: time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
	}, nil
}

func (m *mockRemote) Upload(ctx context.Context, id string, content []byte) (*entity.DriveItem, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, id, content)
	}
	return &entity.DriveItem{ID: id, Name: "readme.md", Size: int64(len(content)), ETag: `"{ETAG-2},2"`}, nil
}

func (m *mockRemote) MkdirByPath(ctx context.Context, name, parentPath string) (*entity.DriveItem, error) {
	if m.mkdirByPathFunc != nil {
		return m.mkdirByPathFunc(ctx, name, parentPath)
	}
	return &entity.DriveItem{ID: "folder-1", Name: name, Folder: &entity.FolderFacet{}}, nil
}

func (m *mockRemote) GetItem(ctx context.Context, id string) (*entity.DriveItem, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, id)
	}
	return &entity.DriveItem{ID: id, Name: "readme.md", DownloadURL: "https://dl.example/readme.md"}, nil
}

func (m *mockRemote) GetItemByPath(ctx context.Context, remotePath string) (*entity.DriveItem, error) {
	if m.getItemByPathFunc != nil {
		return m.getItemByPathFunc(ctx, remotePath)
	}
	return &entity.DriveItem{ID: "item-1", Name: "cat.png", DownloadURL: "https://dl.example/" + remotePath}, nil
}

func (m *mockRemote) DeleteItem(ctx context.Context, id, eTag string) error {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, id, eTag)
	}
	return nil
}

func (m *mockRemote) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

// Mock temp store backed by a map
type mockTemp struct {
	mu       sync.Mutex
	files    map[string][]byte
	deleted  []string
	readErr  error
	deleteFn func(name string) error
}

func newMockTemp() *mockTemp {
	return &mockTemp{files: make(map[string][]byte)}
}

func (m *mockTemp) stage(name string, content []byte) StagedUpload {
	m.mu.Lock()
	defer m.mu.Unlock()
	tempName := "tmp-" + name
	m.files[tempName] = content
	return StagedUpload{OriginalName: name, TempName: tempName}
}

func (m *mockTemp) NewName(originalName string) string {
	return "tmp-" + originalName
}

func (m *mockTemp) Save(ctx context.Context, name string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = content
	return nil
}

func (m *mockTemp) Read(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	content, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", entity.ErrIO, name)
	}
	return content, nil
}

func (m *mockTemp) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, name)
	delete(m.files, name)
	if m.deleteFn != nil {
		return m.deleteFn(name)
	}
	return nil
}

func (m *mockTemp) GetFullPath(name string) string {
	return "/tmp/" + name
}

// Mock cache invalidator counts clears
type mockCache struct {
	mu     sync.Mutex
	clears int
}

func (m *mockCache) ClearAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
}

func (m *mockCache) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// fakeCodec is a reversible, keyed stand-in for the signed codec. Tokens of a
// codec with another key, and truncated tokens, fail to decode.
type fakeCodec struct {
	key string
}

const fakeCodecTrailer = "~"

func (c *fakeCodec) Encode(plain []byte) (string, error) {
	return c.key + "-" + base64.RawURLEncoding.EncodeToString(plain) + fakeCodecTrailer, nil
}

func (c *fakeCodec) Decode(token string) ([]byte, error) {
	prefix := c.key + "-"
	if !strings.HasPrefix(token, prefix) {
		return nil, fmt.Errorf("%w: wrong key", entity.ErrDecode)
	}
	if !strings.HasSuffix(token, fakeCodecTrailer) {
		return nil, fmt.Errorf("%w: truncated", entity.ErrDecode)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(token, prefix), fakeCodecTrailer)
	plain, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}
	return plain, nil
}

// Mock image inspector
type mockImages struct {
	isImage bool
}

func (m *mockImages) IsImage(content []byte) bool {
	return m.isImage
}

// Mock upload repository
type mockUploads struct {
	mu        sync.Mutex
	created   []*entity.UploadRecord
	deleted   []string
	createErr error
	markErr   error
	listFunc  func(ctx context.Context, limit, offset int) ([]*entity.UploadRecord, error)
}

func (m *mockUploads) Create(ctx context.Context, record *entity.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = int64(len(m.created) + 1)
	m.created = append(m.created, record)
	return nil
}

func (m *mockUploads) MarkDeleted(ctx context.Context, itemID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.deleted = append(m.deleted, itemID)
	return nil
}

func (m *mockUploads) List(ctx context.Context, limit, offset int) ([]*entity.UploadRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, nil
}

// Mock content fetcher
type mockFetcher struct {
	fetchFunc func(ctx context.Context, downloadURL string) (string, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, downloadURL string) (string, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, downloadURL)
	}
	return "# readme", nil
}

// Mock logger
type mockLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (c *fakeCodec) mustEncode(plain string) string {
	token, _ := c.Encode([]byte(plain))
	return token
}
