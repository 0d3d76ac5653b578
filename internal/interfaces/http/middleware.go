package http

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	adminUserKey    = "admin_user"
)

// requestIDMiddleware reuses an incoming X-Request-ID or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// basicAuthMiddleware guards admin routes with HTTP basic auth against a bcrypt hash
func basicAuthMiddleware(auth AdminAuth, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if ok && auth.PasswordHash != "" &&
			subtle.ConstantTimeCompare([]byte(user), []byte(auth.Username)) == 1 &&
			bcrypt.CompareHashAndPassword([]byte(auth.PasswordHash), []byte(password)) == nil {
			c.Set(adminUserKey, user)
			c.Next()
			return
		}

		if ok {
			logger.Warn("Admin authentication failed", "user", user, "client_ip", c.ClientIP())
		}
		c.Header("WWW-Authenticate", `Basic realm="admin", charset="UTF-8"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Code:    http.StatusUnauthorized,
			Message: "authentication required",
		})
	}
}

// imageHostingMiddleware applies the image hosting mode to the /image routes
func imageHostingMiddleware(mode string, adminAuth gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch mode {
		case entity.ImageHostingDisabled:
			c.AbortWithStatusJSON(http.StatusNotFound, Response{
				Code:    http.StatusNotFound,
				Message: "image hosting is disabled",
			})
		case entity.ImageHostingAdmin:
			adminAuth(c)
		default:
			c.Next()
		}
	}
}

// sameOriginMiddleware rejects unsafe-method requests a browser sent on
// behalf of another site. Requests carrying neither Sec-Fetch-Site nor
// Origin (curl, scripts) pass.
func sameOriginMiddleware(baseURL string, logger Logger) gin.HandlerFunc {
	var baseHost string
	if u, err := url.Parse(baseURL); err == nil {
		baseHost = strings.ToLower(u.Host)
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if crossSite(c.Request, baseHost) {
			logger.Warn("Rejected cross-site admin request",
				"path", c.Request.URL.Path,
				"origin", c.GetHeader("Origin"),
				"sec_fetch_site", c.GetHeader("Sec-Fetch-Site"),
				"client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Code:    http.StatusForbidden,
				Message: "cross-site request rejected",
			})
			return
		}
		c.Next()
	}
}

func crossSite(r *http.Request, baseHost string) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin", "none":
		return false
	case "":
	default:
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		// includes the opaque "null" origin
		return true
	}
	host := strings.ToLower(u.Host)
	return host != strings.ToLower(r.Host) && host != baseHost
}
