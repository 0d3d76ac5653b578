package port

import "context"

// TempStore stages uploaded files on local disk until the service reads them
type TempStore interface {
	NewName(originalName string) string
	Save(ctx context.Context, name string, content []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	GetFullPath(name string) string
}

// CacheInvalidator drops every cached listing and item. Failures are logged by
// the implementation and never reported to callers.
type CacheInvalidator interface {
	ClearAll(ctx context.Context)
}

// SignedCodec seals and opens opaque tokens. Decode failures wrap entity.ErrDecode.
type SignedCodec interface {
	Encode(plain []byte) (string, error)
	Decode(token string) ([]byte, error)
}

// ImageInspector decides whether uploaded bytes are an image
type ImageInspector interface {
	IsImage(content []byte) bool
}
