package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/driveindex/internal/domain/entity"
	"github.com/garyjia/driveindex/pkg/database"
)

func newTestRepo(t *testing.T) *UploadRepository {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "uploads.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(context.Background(), database.Migrations))
	return NewUploadRepository(db.DB, logger)
}

func TestUploadRepository_CreateAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.png", "b.png", "c.txt"} {
		record := &entity.UploadRecord{
			ItemID:      "item-" + name,
			Name:        name,
			Kind:        entity.UploadKindImage,
			RemotePath:  "drive/pics/" + name,
			LogicalPath: "pics/" + name,
			Size:        int64(10 * (i + 1)),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, record))
		assert.NotZero(t, record.ID)
	}

	records, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c.txt", records[0].Name)
	assert.Equal(t, "a.png", records[2].Name)
	assert.Equal(t, int64(10), records[2].Size)
	assert.False(t, records[0].IsDeleted())

	t.Run("pagination", func(t *testing.T) {
		page, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "b.png", page[0].Name)
	})

	t.Run("empty page", func(t *testing.T) {
		page, err := repo.List(ctx, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestUploadRepository_MarkDeleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := &entity.UploadRecord{
		ItemID: "item-1",
		Name:   "cat.png",
		Kind:   entity.UploadKindImage,
	}
	require.NoError(t, repo.Create(ctx, record))

	deletedAt := time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkDeleted(ctx, "item-1", deletedAt))

	records, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].IsDeleted())
	assert.True(t, deletedAt.Equal(*records[0].DeletedAt))

	t.Run("unknown item is not an error", func(t *testing.T) {
		assert.NoError(t, repo.MarkDeleted(ctx, "never-uploaded", deletedAt))
	})

	t.Run("second mark keeps the first timestamp", func(t *testing.T) {
		require.NoError(t, repo.MarkDeleted(ctx, "item-1", deletedAt.Add(time.Hour)))
		records, err := repo.List(ctx, 10, 0)
		require.NoError(t, err)
		assert.True(t, deletedAt.Equal(*records[0].DeletedAt))
	})
}
