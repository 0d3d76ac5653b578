package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const flashCookie = "driveindex_flash"

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	OK      bool   `json:"ok"`
	Message string `json:"msg"`
}

func setFlash(c *gin.Context, ok bool, message string) {
	raw, err := json.Marshal(Flash{OK: ok, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash returns and clears the pending flash, if any
func takeFlash(c *gin.Context) *Flash {
	cookie, err := c.Request.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flash Flash
	if err := json.Unmarshal(raw, &flash); err != nil {
		return nil
	}
	return &flash
}

// redirectBack sends the browser to the same-host Referer, or fallback
func redirectBack(c *gin.Context, fallback string) {
	target := fallback
	if ref := c.GetHeader("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == c.Request.Host) {
			if u.Host == "" && !strings.HasPrefix(u.Path, "/") {
				u.Path = "/" + u.Path
			}
			if uri := u.RequestURI(); !strings.HasPrefix(uri, "//") && !strings.HasPrefix(uri, `/\`) {
				target = uri
			}
		}
	}
	c.Redirect(http.StatusFound, target)
}
