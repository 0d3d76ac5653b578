package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/application/port"
	"github.com/garyjia/driveindex/internal/domain/entity"
)

// DefaultListLimit is used when List is called with a non-positive limit
const DefaultListLimit = 50

// UploadRepository implements port.UploadRepository
type UploadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *sql.DB, logger *zap.Logger) *UploadRepository {
	return &UploadRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a completed upload
func (r *UploadRepository) Create(ctx context.Context, record *entity.UploadRecord) error {
	query := `
		INSERT INTO upload_records (
			item_id, name, kind, remote_path, logical_path, size, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx, query,
		record.ItemID,
		record.Name,
		record.Kind,
		record.RemotePath,
		record.LogicalPath,
		record.Size,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create upload record",
			zap.String("item_id", record.ItemID),
			zap.Error(err))
		return fmt.Errorf("failed to create upload record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// MarkDeleted stamps every live record of itemID as deleted.
// Items never uploaded through this service have no record; that is not an error.
func (r *UploadRepository) MarkDeleted(ctx context.Context, itemID string, at time.Time) error {
	query := `
		UPDATE upload_records
		SET deleted_at = ?
		WHERE item_id = ? AND deleted_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, at, itemID); err != nil {
		r.logger.Error("Failed to mark upload record deleted",
			zap.String("item_id", itemID),
			zap.Error(err))
		return fmt.Errorf("failed to mark deleted: %w", err)
	}

	return nil
}

// List returns records newest first
func (r *UploadRepository) List(ctx context.Context, limit, offset int) ([]*entity.UploadRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, item_id, name, kind, remote_path, logical_path, size, created_at, deleted_at
		FROM upload_records
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list upload records", zap.Error(err))
		return nil, fmt.Errorf("failed to list upload records: %w", err)
	}
	defer rows.Close()

	records := make([]*entity.UploadRecord, 0)
	for rows.Next() {
		var record entity.UploadRecord
		var deletedAt sql.NullTime

		err := rows.Scan(
			&record.ID,
			&record.ItemID,
			&record.Name,
			&record.Kind,
			&record.RemotePath,
			&record.LogicalPath,
			&record.Size,
			&record.CreatedAt,
			&deletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}

		if deletedAt.Valid {
			record.DeletedAt = &deletedAt.Time
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.UploadRepository = (*UploadRepository)(nil)
