package onedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/domain/entity"
)

// DefaultEndpoint is the Microsoft Graph v1.0 base URL
const DefaultEndpoint = "https://graph.microsoft.com/v1.0"

// DefaultScopes are requested when refreshing the access token
var DefaultScopes = []string{"offline_access", "Files.ReadWrite.All"}

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 64 << 10

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds Graph client configuration
type Config struct {
	ClientID     string
	ClientSecret string
	Tenant       string // "common" when empty
	RedirectURI  string
	RefreshToken string
	Endpoint     string
	Timeout      time.Duration
}

// Client implements port.RemoteStorage against the Graph drive API
type Client struct {
	endpoint   string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates a Graph client that authenticates with the configured
// refresh token. ctx bounds token refreshes and should live as long as the client.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) *Client {
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		Scopes:       DefaultScopes,
	}

	base := &http.Client{Timeout: cfg.Timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	httpClient := oauth2.NewClient(ctx, tokenSource)
	httpClient.Timeout = cfg.Timeout

	return NewClientWithHTTP(cfg.Endpoint, httpClient, logger)
}

// NewClientWithHTTP creates a client over an already authenticated HTTP client
func NewClientWithHTTP(endpoint string, httpClient HTTPClient, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// UploadByPath creates or overwrites the file at remotePath (simple upload, up to 4MB)
func (c *Client) UploadByPath(ctx context.Context, remotePath string, content []byte) (*entity.DriveItem, error) {
	if remotePath == "" {
		return nil, &entity.RemoteError{Op: "uploadByPath", Message: "empty remote path"}
	}
	u := c.endpoint + "/me/drive/root:/" + escapePath(remotePath) + ":/content"
	return c.doItem(ctx, "uploadByPath", http.MethodPut, u, bytes.NewReader(content), "application/octet-stream", nil)
}

// Upload replaces the content of an existing item
func (c *Client) Upload(ctx context.Context, id string, content []byte) (*entity.DriveItem, error) {
	u := c.endpoint + "/me/drive/items/" + url.PathEscape(id) + "/content"
	return c.doItem(ctx, "upload", http.MethodPut, u, bytes.NewReader(content), "application/octet-stream", nil)
}

// MkdirByPath creates folder name under parentPath, renaming on conflict
func (c *Client) MkdirByPath(ctx context.Context, name, parentPath string) (*entity.DriveItem, error) {
	u := c.endpoint + "/me/drive/root/children"
	if parentPath != "" {
		u = c.endpoint + "/me/drive/root:/" + escapePath(parentPath) + ":/children"
	}

	body, err := json.Marshal(map[string]interface{}{
		"name":                              name,
		"folder":                            map[string]interface{}{},
		"@microsoft.graph.conflictBehavior": "rename",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder request: %w", err)
	}

	return c.doItem(ctx, "mkdirByPath", http.MethodPost, u, bytes.NewReader(body), "application/json", nil)
}

// GetItem fetches item metadata by id
func (c *Client) GetItem(ctx context.Context, id string) (*entity.DriveItem, error) {
	u := c.endpoint + "/me/drive/items/" + url.PathEscape(id)
	return c.doItem(ctx, "getItem", http.MethodGet, u, nil, "", nil)
}

// GetItemByPath fetches item metadata by remote path
func (c *Client) GetItemByPath(ctx context.Context, remotePath string) (*entity.DriveItem, error) {
	u := c.endpoint + "/me/drive/root"
	if remotePath != "" {
		u = c.endpoint + "/me/drive/root:/" + escapePath(remotePath)
	}
	return c.doItem(ctx, "getItemByPath", http.MethodGet, u, nil, "", nil)
}

// DeleteItem deletes an item if its current eTag still matches
func (c *Client) DeleteItem(ctx context.Context, id, eTag string) error {
	u := c.endpoint + "/me/drive/items/" + url.PathEscape(id)
	headers := map[string]string{}
	if eTag != "" {
		headers["If-Match"] = eTag
	}

	resp, err := c.do(ctx, "deleteItem", http.MethodDelete, u, nil, "", headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("Deleted drive item", zap.String("id", id))
	return nil
}

// doItem performs a request whose successful response is a driveItem
func (c *Client) doItem(ctx context.Context, op, method, u string, body io.Reader, contentType string, headers map[string]string) (*entity.DriveItem, error) {
	resp, err := c.do(ctx, op, method, u, body, contentType, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var item entity.DriveItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, &entity.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	if item.ID == "" {
		return nil, &entity.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "response has no item"}
	}

	c.logger.Debug("Drive request completed",
		zap.String("op", op),
		zap.String("id", item.ID),
		zap.String("name", item.Name))

	return &item, nil
}

// do sends the request and converts transport failures and non-2xx answers
// into *entity.RemoteError. The caller owns the returned body.
func (c *Client) do(ctx context.Context, op, method, u string, body io.Reader, contentType string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &entity.RemoteError{Op: op, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Drive request failed",
			zap.String("op", op),
			zap.Error(err))
		return nil, &entity.RemoteError{Op: op, Message: "request failed", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		remoteErr := parseError(op, resp)
		c.logger.Warn("Drive request returned error status",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("code", remoteErr.Code))
		return nil, remoteErr
	}

	return resp, nil
}

// graphError is the Graph error envelope
type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseError(op string, resp *http.Response) *entity.RemoteError {
	remoteErr := &entity.RemoteError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return remoteErr
	}

	var envelope graphError
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
		remoteErr.Code = envelope.Error.Code
		remoteErr.Message = envelope.Error.Message
	}
	return remoteErr
}

// escapePath escapes each segment of a remote path for use in a Graph URL
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// Verify interface compliance
var _ port.RemoteStorage = (*Client)(nil)
