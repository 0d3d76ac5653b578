package port

import (
	"context"
	"time"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// UploadRepository defines persistence operations for UploadRecord
type UploadRepository interface {
	Create(ctx context.Context, record *entity.UploadRecord) error
	MarkDeleted(ctx context.Context, itemID string, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]*entity.UploadRecord, error)
}
