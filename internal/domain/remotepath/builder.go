// Package remotepath turns operator-supplied names and folders into
// normalized drive paths below the configured storage root.
package remotepath

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/driveindex/internal/domain/entity"
	"github.com/garyjia/driveindex/pkg/utils"
)

// Kind selects how the final path segment is produced.
type Kind int

const (
	// KindFile keeps the name as given
	KindFile Kind = iota
	// KindImage places the name under image_hosting_path/YYYY/MM/DD/<random>/
	KindImage
	// KindNote appends the markdown extension
	KindNote
	// KindPassword ignores the name and targets the folder's password file
	KindPassword
)

const (
	// PasswordFileName is the file whose content locks a folder
	PasswordFileName = ".password"
	// NoteExtension is appended to notes created from the admin panel
	NoteExtension = ".md"
	// SegmentLength is the length of the random collision-avoidance segment
	SegmentLength = 8
)

// Path is a built remote path.
type Path struct {
	// Remote is the full path handed to the storage client
	Remote string
	// Logical is Remote without the storage root; view URLs are built from it
	Logical string
}

// Builder builds remote paths. It is immutable after construction.
type Builder struct {
	root             string
	imageHostingPath string
	now              func() time.Time
	random           func() string
}

// Option customizes a Builder
type Option func(*Builder)

// WithClock overrides the clock used for dated image folders
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithRandom overrides the random segment generator
func WithRandom(fn func() string) Option {
	return func(b *Builder) { b.random = fn }
}

// NewBuilder creates a Builder for the given storage root and image folder
func NewBuilder(root, imageHostingPath string, opts ...Option) *Builder {
	b := &Builder{
		root:             Join(root),
		imageHostingPath: Join(imageHostingPath),
		now:              time.Now,
		random:           RandomSegment,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Root returns the normalized storage root
func (b *Builder) Root() string {
	return b.root
}

// Build produces the remote path for kind. logicalPath is the folder below the
// root (empty means top level) and is ignored for KindImage.
func (b *Builder) Build(kind Kind, logicalPath, name string) (Path, error) {
	if err := checkLogical(logicalPath); err != nil {
		return Path{}, err
	}

	var fileName string
	if kind == KindPassword {
		fileName = PasswordFileName
	} else {
		cleaned, err := CleanName(name)
		if err != nil {
			return Path{}, err
		}
		fileName = cleaned
		if kind == KindNote {
			fileName += NoteExtension
		}
	}

	var logical string
	if kind == KindImage {
		t := b.now()
		logical = Join(
			b.imageHostingPath,
			t.Format("2006"),
			t.Format("01"),
			t.Format("02"),
			b.random(),
			fileName,
		)
	} else {
		logical = Join(logicalPath, fileName)
	}

	return Path{
		Remote:  Join(b.root, logical),
		Logical: logical,
	}, nil
}

// Parent returns the remote folder for logicalPath. An empty result is the
// drive root.
func (b *Builder) Parent(logicalPath string) (string, error) {
	return b.Remote(logicalPath)
}

// Remote maps a logical path (file or folder) to its remote path
func (b *Builder) Remote(logicalPath string) (string, error) {
	if err := checkLogical(logicalPath); err != nil {
		return "", err
	}
	return Join(b.root, logicalPath), nil
}

// Join joins segments with "/" and drops empty pieces, so the result never has
// a leading, trailing, or doubled separator.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		for _, p := range strings.Split(segment, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, "/")
}

// RandomSegment returns SegmentLength hex characters taken from a v4 UUID.
func RandomSegment() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:SegmentLength]
}

// CleanName trims and sanitizes a single path segment supplied by the operator
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(utils.SanitizeString(name))
	switch {
	case name == "":
		return "", entity.NewValidationError("name", "is required")
	case strings.ContainsAny(name, `/\`):
		return "", entity.NewValidationError("name", "must not contain path separators")
	case name == "." || name == "..":
		return "", entity.NewValidationError("name", "is not a valid file name")
	}
	return name, nil
}

func checkLogical(logicalPath string) error {
	for _, p := range strings.Split(logicalPath, "/") {
		if p == ".." {
			return entity.NewValidationError("path", "must not contain parent references")
		}
	}
	return nil
}
