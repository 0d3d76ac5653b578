// internal/infrastructure/storage/file_storage.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/domain/entity"
)

// TempFileStorage stages multipart uploads under a single local directory
type TempFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewTempFileStorage creates a TempFileStorage rooted at baseDir
func NewTempFileStorage(baseDir string, logger *zap.Logger) *TempFileStorage {
	return &TempFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// NewName returns a collision-free staging name keeping the original extension
func (s *TempFileStorage) NewName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return uuid.New().String() + ext
}

// Save writes content under name
func (s *TempFileStorage) Save(ctx context.Context, name string, content []byte) error {
	fullPath := s.GetFullPath(name)

	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		s.logger.Error("Failed to create temp directory",
			zap.String("path", s.baseDir),
			zap.Error(err))
		return fmt.Errorf("%w: failed to create temp directory: %v", entity.ErrIO, err)
	}

	if err := os.WriteFile(fullPath, content, 0600); err != nil {
		s.logger.Error("Failed to write temp file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("%w: failed to write temp file: %v", entity.ErrIO, err)
	}

	s.logger.Debug("Temp file staged",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return nil
}

// Read returns the staged content of name
func (s *TempFileStorage) Read(ctx context.Context, name string) ([]byte, error) {
	fullPath := s.GetFullPath(name)

	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Failed to read temp file",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("%w: failed to read temp file: %v", entity.ErrIO, err)
	}

	return content, nil
}

// Delete removes name; a missing file is not an error
func (s *TempFileStorage) Delete(ctx context.Context, name string) error {
	fullPath := s.GetFullPath(name)

	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete temp file: %v", entity.ErrIO, err)
	}

	s.logger.Debug("Temp file removed", zap.String("path", fullPath))
	return nil
}

// GetFullPath converts a staging name to its full path
func (s *TempFileStorage) GetFullPath(name string) string {
	return filepath.Join(s.baseDir, name)
}

// validatePath checks that the path is strictly inside baseDir
func (s *TempFileStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("%w: failed to resolve path: %v", entity.ErrIO, err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("%w: failed to resolve base path: %v", entity.ErrIO, err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("%w: path escapes temp directory: %s", entity.ErrIO, fullPath)
	}

	return nil
}

// Verify interface compliance
var _ port.TempStore = (*TempFileStorage)(nil)
