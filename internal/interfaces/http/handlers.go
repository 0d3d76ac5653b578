package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/application/service"
	"github.com/garyjia/driveindex/internal/domain/entity"
)

const (
	imageField = "olaindex_img"
	fileField  = "olaindex_file"

	// multipartOverhead allows for boundaries and other form fields on top of the file
	multipartOverhead = 1 << 20
)

var pageTitles = map[string]string{
	"image":   "Image hosting",
	"file":    "Upload file",
	"add":     "New note",
	"edit":    "Edit file",
	"message": "Message",
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	config        ServerConfig
	manageService service.ManageService
	temp          port.TempStore
	checks        map[string]HealthChecker
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	config ServerConfig,
	manageService service.ManageService,
	temp port.TempStore,
	checks map[string]HealthChecker,
	logger Logger,
) *Handlers {
	return &Handlers{
		config:        config,
		manageService: manageService,
		temp:          temp,
		checks:        checks,
		logger:        logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// UploadResponse is the data of a successful upload
type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Time     string `json:"time"`
	URL      string `json:"url,omitempty"`
	Delete   string `json:"delete,omitempty"`
}

// ListUploadsRequest represents query parameters for listing uploads
type ListUploadsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			response.Components[name] = err.Error()
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Components[name] = "ok"
	}

	c.JSON(status, Response{Code: status, Data: response})
}

// ImageForm handles GET /image
func (h *Handlers) ImageForm(c *gin.Context) {
	h.render(c, http.StatusOK, "image", gin.H{"Field": imageField})
}

// UploadImage handles POST /image
func (h *Handlers) UploadImage(c *gin.Context) {
	upload, err := h.stage(c, imageField)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.manageService.UploadImage(c.Request.Context(), upload)
	if err != nil {
		h.fail(c, err)
		return
	}

	base := h.baseURL(c)
	data := toUploadResponse(result.Item)
	data.URL = base + "/view/" + escapePath(result.LogicalPath)
	data.Delete = base + "/file/delete/" + result.DeleteToken

	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: data})
}

// FileForm handles GET /admin/file
func (h *Handlers) FileForm(c *gin.Context) {
	h.render(c, http.StatusOK, "file", gin.H{"Field": fileField, "Root": c.DefaultQuery("root", "/")})
}

// UploadFile handles POST /admin/file
func (h *Handlers) UploadFile(c *gin.Context) {
	upload, err := h.stage(c, fileField)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.manageService.UploadFile(c.Request.Context(), upload, c.DefaultPostForm("root", "/"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: toUploadResponse(result.Item)})
}

// LockFolder handles POST /admin/lock
func (h *Handlers) LockFolder(c *gin.Context) {
	err := h.manageService.LockFolder(c.Request.Context(), c.PostForm("path"), c.PostForm("password"))
	if err != nil {
		setFlash(c, false, "Lock failed: "+userMessage(err))
	} else {
		setFlash(c, true, "Folder locked, keep the password safe")
	}
	redirectBack(c, h.config.HomePath)
}

// AddFileForm handles GET /admin/file/add. The target folder comes either
// sealed in "path" or as a plain "dir".
func (h *Handlers) AddFileForm(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		encoded, err := h.manageService.EncodePath(c.DefaultQuery("dir", "/"))
		if err != nil {
			h.renderError(c, err)
			return
		}
		path = encoded
	}
	h.render(c, http.StatusOK, "add", gin.H{"Path": path})
}

// CreateFile handles POST /admin/file/add
func (h *Handlers) CreateFile(c *gin.Context) {
	folder, err := h.manageService.CreateFile(c.Request.Context(),
		c.PostForm("path"), c.PostForm("name"), c.PostForm("content"))
	if err != nil {
		setFlash(c, false, "Create failed: "+userMessage(err))
		redirectBack(c, h.config.HomePath)
		return
	}

	setFlash(c, true, "File created")
	c.Redirect(http.StatusFound, h.homeURL(folder))
}

// EditFileForm handles GET /admin/file/edit/:id
func (h *Handlers) EditFileForm(c *gin.Context) {
	file, err := h.manageService.GetEditableFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "edit", gin.H{"File": file})
}

// UpdateFile handles POST /admin/file/edit/:id
func (h *Handlers) UpdateFile(c *gin.Context) {
	_, err := h.manageService.UpdateFile(c.Request.Context(), c.Param("id"), c.PostForm("content"))
	if err != nil {
		setFlash(c, false, "Update failed: "+userMessage(err))
	} else {
		setFlash(c, true, "File updated")
	}
	redirectBack(c, h.config.HomePath)
}

// CreateFolder handles POST /admin/folder/create
func (h *Handlers) CreateFolder(c *gin.Context) {
	_, err := h.manageService.CreateFolder(c.Request.Context(), c.PostForm("path"), c.PostForm("name"))
	if err != nil {
		setFlash(c, false, "Create folder failed: "+userMessage(err))
	} else {
		setFlash(c, true, "Folder created")
	}
	redirectBack(c, h.config.HomePath)
}

// DeleteItem handles GET /file/delete/:sign
func (h *Handlers) DeleteItem(c *gin.Context) {
	if err := h.manageService.DeleteItem(c.Request.Context(), c.Param("sign")); err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "message", gin.H{
		"Flash": &Flash{OK: true, Message: "File deleted"},
	})
}

// ListUploads handles GET /admin/uploads
func (h *Handlers) ListUploads(c *gin.Context) {
	var req ListUploadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	records, err := h.manageService.ListUploads(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: records})
}

// View handles GET /view/*path
func (h *Handlers) View(c *gin.Context) {
	item, err := h.manageService.ResolveView(c.Request.Context(), c.Param("path"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, item.DownloadURL)
}

// stage copies the multipart file in field into the temp store
func (h *Handlers) stage(c *gin.Context, field string) (service.StagedUpload, error) {
	limit := h.config.MaxUploadSize + multipartOverhead
	if c.Request.ContentLength > limit {
		return service.StagedUpload{}, h.tooLarge(field)
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile(field)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return service.StagedUpload{}, h.tooLarge(field)
		}
		return service.StagedUpload{}, entity.NewValidationError(field, "file is required")
	}
	if header.Size > h.config.MaxUploadSize {
		return service.StagedUpload{}, h.tooLarge(field)
	}

	f, err := header.Open()
	if err != nil {
		return service.StagedUpload{}, fmt.Errorf("%w: failed to open upload: %v", entity.ErrIO, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, h.config.MaxUploadSize+1))
	if err != nil {
		return service.StagedUpload{}, fmt.Errorf("%w: failed to read upload: %v", entity.ErrIO, err)
	}

	name := h.temp.NewName(header.Filename)
	if err := h.temp.Save(c.Request.Context(), name, content); err != nil {
		return service.StagedUpload{}, err
	}

	return service.StagedUpload{OriginalName: header.Filename, TempName: name}, nil
}

func (h *Handlers) tooLarge(field string) error {
	return entity.NewValidationError(field, fmt.Sprintf("must not exceed %d KB", h.config.MaxUploadSize>>10))
}

// fail writes the JSON error envelope for err
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, Response{Code: status, Message: userMessage(err)})
}

// renderError shows err on the message page
func (h *Handlers) renderError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	h.render(c, status, "message", gin.H{
		"Flash": &Flash{OK: false, Message: userMessage(err)},
	})
}

// render executes a page template with the pending flash message
func (h *Handlers) render(c *gin.Context, status int, name string, data gin.H) {
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = takeFlash(c)
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = pageTitles[name]
	}
	data["Admin"] = c.GetString(adminUserKey)
	c.HTML(status, name, data)
}

// baseURL returns the absolute prefix for generated links
func (h *Handlers) baseURL(c *gin.Context) string {
	if h.config.BaseURL != "" {
		return strings.TrimRight(h.config.BaseURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// homeURL links to the listing of a logical folder
func (h *Handlers) homeURL(folder string) string {
	home := strings.TrimRight(h.config.HomePath, "/")
	if folder == "" {
		return home + "/"
	}
	return home + "/" + escapePath(folder)
}

func toUploadResponse(item *entity.DriveItem) UploadResponse {
	return UploadResponse{
		ID:       item.ID,
		Filename: item.Name,
		Size:     item.Size,
		Time:     item.LastModifiedDateTime.UTC().Format(time.RFC3339),
	}
}

// escapePath escapes every segment of a slash separated path
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
