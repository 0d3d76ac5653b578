package onedrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/domain/entity"
)

// DefaultMaxContentSize bounds text loaded into the edit form
const DefaultMaxContentSize int64 = 1 << 20

// ContentFetcher downloads file content from pre-authenticated download URLs.
// Download URLs carry their own credentials, so a plain client is used.
type ContentFetcher struct {
	httpClient HTTPClient
	maxBytes   int64
	logger     *zap.Logger
}

// NewContentFetcher creates a fetcher with its own HTTP client
func NewContentFetcher(timeout time.Duration, maxBytes int64, logger *zap.Logger) *ContentFetcher {
	return NewContentFetcherWithHTTP(&http.Client{Timeout: timeout}, maxBytes, logger)
}

// NewContentFetcherWithHTTP creates a fetcher over httpClient
func NewContentFetcherWithHTTP(httpClient HTTPClient, maxBytes int64, logger *zap.Logger) *ContentFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxContentSize
	}
	return &ContentFetcher{
		httpClient: httpClient,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Fetch returns the body at downloadURL as text
func (f *ContentFetcher) Fetch(ctx context.Context, downloadURL string) (string, error) {
	if downloadURL == "" {
		return "", &entity.RemoteError{Op: "fetchContent", Message: "item has no download url"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", &entity.RemoteError{Op: "fetchContent", Message: "failed to create request", Err: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("Content download failed", zap.Error(err))
		return "", &entity.RemoteError{Op: "fetchContent", Message: "download failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("Content download returned non-200 status", zap.Int("status", resp.StatusCode))
		return "", &entity.RemoteError{
			Op:         "fetchContent",
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", &entity.RemoteError{Op: "fetchContent", Message: "failed to read body", Err: err}
	}
	if int64(len(content)) > f.maxBytes {
		return "", entity.NewValidationError("content", fmt.Sprintf("file exceeds %d bytes and cannot be edited online", f.maxBytes))
	}

	return string(content), nil
}

// Verify interface compliance
var _ port.ContentFetcher = (*ContentFetcher)(nil)
