package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/domain/deletetoken"
	"github.com/garyjia/driveindex/internal/domain/entity"
	"github.com/garyjia/driveindex/internal/domain/remotepath"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ManageService implements the admin operations, one per handler
type ManageService interface {
	UploadImage(ctx context.Context, upload StagedUpload) (*UploadResult, error)
	UploadFile(ctx context.Context, upload StagedUpload, targetDir string) (*UploadResult, error)
	LockFolder(ctx context.Context, encodedPath, password string) error
	CreateFile(ctx context.Context, encodedPath, name, content string) (string, error)
	GetEditableFile(ctx context.Context, id string) (*EditableFile, error)
	UpdateFile(ctx context.Context, id, content string) (*entity.DriveItem, error)
	CreateFolder(ctx context.Context, encodedPath, name string) (*entity.DriveItem, error)
	DeleteItem(ctx context.Context, token string) error
	ListUploads(ctx context.Context, limit, offset int) ([]*entity.UploadRecord, error)
	ResolveView(ctx context.Context, logicalPath string) (*entity.DriveItem, error)
	EncodePath(logicalPath string) (string, error)
}

// StagedUpload is a multipart file already written to the temp store
type StagedUpload struct {
	OriginalName string
	TempName     string
}

// UploadResult describes a completed upload. DeleteToken is only set for images.
type UploadResult struct {
	Item        *entity.DriveItem
	LogicalPath string
	DeleteToken string
}

// EditableFile is a text file loaded for the edit form
type EditableFile struct {
	Item    *entity.DriveItem
	Content string
}

// ManageConfig holds the static settings of the service
type ManageConfig struct {
	MaxUploadSize       int64
	DefaultLockPassword string
}

// ManageDeps are the collaborators of the service
type ManageDeps struct {
	Remote  port.RemoteStorage
	Fetcher port.ContentFetcher
	Temp    port.TempStore
	Cache   port.CacheInvalidator
	Codec   port.SignedCodec
	Images  port.ImageInspector
	Uploads port.UploadRepository
	Paths   *remotepath.Builder
	Logger  Logger
}

type manageServiceImpl struct {
	cfg     ManageConfig
	remote  port.RemoteStorage
	fetcher port.ContentFetcher
	temp    port.TempStore
	cache   port.CacheInvalidator
	codec   port.SignedCodec
	tokens  *deletetoken.Tokens
	images  port.ImageInspector
	uploads port.UploadRepository
	paths   *remotepath.Builder
	logger  Logger
	now     func() time.Time
}

// NewManageService creates a new ManageService
func NewManageService(cfg ManageConfig, deps ManageDeps) ManageService {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = entity.MaxUploadSize
	}
	if cfg.DefaultLockPassword == "" {
		cfg.DefaultLockPassword = entity.DefaultLockPassword
	}
	return &manageServiceImpl{
		cfg:     cfg,
		remote:  deps.Remote,
		fetcher: deps.Fetcher,
		temp:    deps.Temp,
		cache:   deps.Cache,
		codec:   deps.Codec,
		tokens:  deletetoken.New(deps.Codec),
		images:  deps.Images,
		uploads: deps.Uploads,
		paths:   deps.Paths,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

// UploadImage stores an image under the dated image hosting folder and
// returns a delete token for it
func (s *manageServiceImpl) UploadImage(ctx context.Context, upload StagedUpload) (*UploadResult, error) {
	defer s.discard(ctx, upload.TempName)

	content, err := s.readStaged(ctx, upload)
	if err != nil {
		return nil, err
	}
	if !s.images.IsImage(content) {
		return nil, entity.NewValidationError("olaindex_img", "must be an image")
	}

	path, err := s.paths.Build(remotepath.KindImage, "", upload.OriginalName)
	if err != nil {
		return nil, err
	}

	item, err := s.mutate(ctx, func() (*entity.DriveItem, error) {
		return s.remote.UploadByPath(ctx, path.Remote, content)
	})
	if err != nil {
		s.logger.Error("Image upload failed", "path", path.Remote, "error", err)
		return nil, err
	}

	token, err := s.tokens.Encode(item.ID, item.ETag)
	if err != nil {
		return nil, fmt.Errorf("failed to create delete token: %w", err)
	}

	s.record(ctx, item, entity.UploadKindImage, path)
	s.logger.Info("Image uploaded", "id", item.ID, "path", path.Remote, "size", item.Size)

	return &UploadResult{Item: item, LogicalPath: path.Logical, DeleteToken: token}, nil
}

// UploadFile stores a file under targetDir (relative to the root)
func (s *manageServiceImpl) UploadFile(ctx context.Context, upload StagedUpload, targetDir string) (*UploadResult, error) {
	defer s.discard(ctx, upload.TempName)

	content, err := s.readStaged(ctx, upload)
	if err != nil {
		return nil, err
	}

	path, err := s.paths.Build(remotepath.KindFile, targetDir, upload.OriginalName)
	if err != nil {
		return nil, err
	}

	item, err := s.mutate(ctx, func() (*entity.DriveItem, error) {
		return s.remote.UploadByPath(ctx, path.Remote, content)
	})
	if err != nil {
		s.logger.Error("File upload failed", "path", path.Remote, "error", err)
		return nil, err
	}

	s.record(ctx, item, entity.UploadKindFile, path)
	s.logger.Info("File uploaded", "id", item.ID, "path", path.Remote, "size", item.Size)

	return &UploadResult{Item: item, LogicalPath: path.Logical}, nil
}

// LockFolder writes the password file into the folder named by encodedPath
func (s *manageServiceImpl) LockFolder(ctx context.Context, encodedPath, password string) error {
	folder, err := s.decodePath(encodedPath)
	if err != nil {
		return err
	}
	if password == "" {
		password = s.cfg.DefaultLockPassword
	}

	path, err := s.paths.Build(remotepath.KindPassword, folder, "")
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, func() (*entity.DriveItem, error) {
		return s.remote.UploadByPath(ctx, path.Remote, []byte(password))
	})
	if err != nil {
		s.logger.Error("Folder lock failed", "path", path.Remote, "error", err)
		return err
	}

	s.logger.Info("Folder locked", "path", path.Remote)
	return nil
}

// CreateFile writes a markdown note and returns the logical folder it was created in
func (s *manageServiceImpl) CreateFile(ctx context.Context, encodedPath, name, content string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", entity.NewValidationError("name", "is required")
	}
	if content == "" {
		return "", entity.NewValidationError("content", "is required")
	}

	folder, err := s.decodePath(encodedPath)
	if err != nil {
		return "", err
	}

	path, err := s.paths.Build(remotepath.KindNote, folder, name)
	if err != nil {
		return "", err
	}

	item, err := s.mutate(ctx, func() (*entity.DriveItem, error) {
		return s.remote.UploadByPath(ctx, path.Remote, []byte(content))
	})
	if err != nil {
		s.logger.Error("Note creation failed", "path", path.Remote, "error", err)
		return "", err
	}

	s.logger.Info("Note created", "id", item.ID, "path", path.Remote)
	return remotepath.Join(folder), nil
}

// GetEditableFile loads an item and its current text content
func (s *manageServiceImpl) GetEditableFile(ctx context.Context, id string) (*EditableFile, error) {
	if id == "" {
		return nil, entity.NewValidationError("id", "is required")
	}

	item, err := s.remote.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.IsFolder() {
		return nil, entity.NewValidationError("id", "is a folder")
	}

	content, err := s.fetcher.Fetch(ctx, item.DownloadURL)
	if err != nil {
		return nil, err
	}

	return &EditableFile{Item: item, Content: content}, nil
}

// UpdateFile overwrites the content of item id
func (s *manageServiceImpl) UpdateFile(ctx context.Context, id, content string) (*entity.DriveItem, error) {
	if id == "" {
		return nil, entity.NewValidationError("id", "is required")
	}
	if content == "" {
		return nil, entity.NewValidationError("content", "is required")
	}

	item, err := s.mutate(ctx, func() (*entity.DriveItem, error) {
		return s.remote.Upload(ctx, id, []byte(content))
	})
	if err != nil {
		s.logger.Error("File update failed", "id", id, "error", err)
		return nil, err
	}

	s.logger.Info("File updated", "id", item.ID, "size", item.Size)
	return item, nil
}

// CreateFolder creates folder name inside the folder named by encodedPath
func (s *manageServiceImpl) CreateFolder(ctx context.Context, encodedPath, name string) (*entity.DriveItem, error) {
	cleaned, err := remotepath.CleanName(name)
	if err != nil {
		return nil, err
	}

	folder, err := s.decodePath(encodedPath)
	if err != nil {
		return nil, err
	}

	parent, err := s.paths.Parent(folder)
	if err != nil {
		return nil, err
	}

	item, err := s.mutate(ctx, func() (*entity.DriveItem, error) {
		return s.remote.MkdirByPath(ctx, cleaned, parent)
	})
	if err != nil {
		s.logger.Error("Folder creation failed", "parent", parent, "name", cleaned, "error", err)
		return nil, err
	}

	s.logger.Info("Folder created", "id", item.ID, "parent", parent, "name", item.Name)
	return item, nil
}

// DeleteItem deletes the item sealed in token, provided it is unchanged since
// the token was issued
func (s *manageServiceImpl) DeleteItem(ctx context.Context, token string) error {
	id, eTag, err := s.tokens.Decode(token)
	if err != nil {
		s.logger.Warn("Rejected delete token", "error", err)
		return err
	}

	_, err = s.mutate(ctx, func() (*entity.DriveItem, error) {
		return nil, s.remote.DeleteItem(ctx, id, eTag)
	})
	if err != nil {
		s.logger.Error("Delete failed", "id", id, "error", err)
		return err
	}

	if s.uploads != nil {
		if err := s.uploads.MarkDeleted(ctx, id, s.now()); err != nil {
			s.logger.Error("Failed to mark upload deleted", "id", id, "error", err)
		}
	}

	s.logger.Info("Item deleted", "id", id)
	return nil
}

// ListUploads returns the upload history, newest first
func (s *manageServiceImpl) ListUploads(ctx context.Context, limit, offset int) ([]*entity.UploadRecord, error) {
	if s.uploads == nil {
		return []*entity.UploadRecord{}, nil
	}
	if limit < 0 || offset < 0 {
		return nil, entity.NewValidationError("limit", "limit and offset must not be negative")
	}
	return s.uploads.List(ctx, limit, offset)
}

// ResolveView looks up the file at logicalPath for the view redirect
func (s *manageServiceImpl) ResolveView(ctx context.Context, logicalPath string) (*entity.DriveItem, error) {
	if remotepath.Join(logicalPath) == "" {
		return nil, entity.NewValidationError("path", "is required")
	}

	remote, err := s.paths.Remote(logicalPath)
	if err != nil {
		return nil, err
	}

	item, err := s.remote.GetItemByPath(ctx, remote)
	if err != nil {
		return nil, err
	}
	if item.IsFolder() {
		return nil, entity.NewValidationError("path", "is a folder")
	}
	if item.DownloadURL == "" {
		return nil, &entity.RemoteError{Op: "resolveView", Message: "item has no download url"}
	}
	return item, nil
}

// EncodePath seals a logical folder path for use in admin forms
func (s *manageServiceImpl) EncodePath(logicalPath string) (string, error) {
	return s.codec.Encode([]byte(remotepath.Join(logicalPath)))
}

// mutate runs a remote mutation and clears the cache afterwards, whatever the outcome
func (s *manageServiceImpl) mutate(ctx context.Context, fn func() (*entity.DriveItem, error)) (*entity.DriveItem, error) {
	defer s.cache.ClearAll(ctx)
	return fn()
}

func (s *manageServiceImpl) readStaged(ctx context.Context, upload StagedUpload) ([]byte, error) {
	if upload.TempName == "" {
		return nil, entity.NewValidationError("file", "upload is empty")
	}

	content, err := s.temp.Read(ctx, upload.TempName)
	if err != nil {
		if errors.Is(err, entity.ErrIO) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", entity.ErrIO, err)
	}

	if int64(len(content)) > s.cfg.MaxUploadSize {
		return nil, entity.NewValidationError("file", fmt.Sprintf("must not exceed %d bytes", s.cfg.MaxUploadSize))
	}
	return content, nil
}

// discard removes a staged upload; failures are only logged
func (s *manageServiceImpl) discard(ctx context.Context, tempName string) {
	if tempName == "" {
		return
	}
	if err := s.temp.Delete(ctx, tempName); err != nil {
		s.logger.Warn("Failed to remove temp file", "name", tempName, "error", err)
	}
}

func (s *manageServiceImpl) decodePath(encoded string) (string, error) {
	if encoded == "" {
		return "", entity.NewValidationError("path", "is required")
	}
	plain, err := s.codec.Decode(encoded)
	if err != nil {
		if errors.Is(err, entity.ErrDecode) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}
	return string(plain), nil
}

// record writes the upload history entry; failures never fail the upload
func (s *manageServiceImpl) record(ctx context.Context, item *entity.DriveItem, kind string, path remotepath.Path) {
	if s.uploads == nil {
		return
	}
	record := &entity.UploadRecord{
		ItemID:      item.ID,
		Name:        item.Name,
		Kind:        kind,
		RemotePath:  path.Remote,
		LogicalPath: path.Logical,
		Size:        item.Size,
		CreatedAt:   s.now(),
	}
	if err := s.uploads.Create(ctx, record); err != nil {
		s.logger.Error("Failed to record upload", "id", item.ID, "error", err)
	}
}
