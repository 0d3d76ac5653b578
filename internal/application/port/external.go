package port

import (
	"context"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// RemoteStorage defines drive operations against the storage provider.
// Paths are normalized remote paths (no leading or trailing slash); an empty
// parent path is the drive root. Failures wrap entity.ErrRemote.
type RemoteStorage interface {
	UploadByPath(ctx context.Context, remotePath string, content []byte) (*entity.DriveItem, error)
	Upload(ctx context.Context, id string, content []byte) (*entity.DriveItem, error)
	MkdirByPath(ctx context.Context, name, parentPath string) (*entity.DriveItem, error)
	GetItem(ctx context.Context, id string) (*entity.DriveItem, error)
	GetItemByPath(ctx context.Context, remotePath string) (*entity.DriveItem, error)
	DeleteItem(ctx context.Context, id, eTag string) error
}

// ContentFetcher downloads text content from a pre-authenticated download URL
type ContentFetcher interface {
	Fetch(ctx context.Context, downloadURL string) (string, error)
}
