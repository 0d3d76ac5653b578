package imaging

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/garyjia/driveindex/internal/application/port"
)

// svgSniffLimit is how far into a file the <svg> root is looked for
const svgSniffLimit = 1024

// Inspector recognizes raster images by decoding their header and SVG by its root element
type Inspector struct{}

// NewInspector creates an Inspector
func NewInspector() *Inspector {
	return &Inspector{}
}

// IsImage reports whether content is a supported image
func (i *Inspector) IsImage(content []byte) bool {
	return i.Format(content) != ""
}

// Format returns the image format name ("png", "jpeg", "svg", ...) or "" when
// content is not a supported image
func (i *Inspector) Format(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return format
	}

	if isSVG(content) {
		return "svg"
	}
	return ""
}

func isSVG(content []byte) bool {
	head := content
	if len(head) > svgSniffLimit {
		head = head[:svgSniffLimit]
	}
	text := strings.ToLower(strings.TrimSpace(string(head)))
	if !strings.HasPrefix(text, "<") {
		return false
	}
	return strings.Contains(text, "<svg")
}

// Verify interface compliance
var _ port.ImageInspector = (*Inspector)(nil)
