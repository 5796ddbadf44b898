package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidcast/vidcast/internal/db"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/videos"
)

// VideoRepository exposes data access for published video records.
type VideoRepository interface {
	Create(ctx context.Context, record models.VideoRecord) error
	FindByID(ctx context.Context, assetID string) (models.VideoRecord, error)
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for video records.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record. The asset starts pending until the
// verifier confirms the source object exists.
func (r *PostgresVideoRepository) Create(ctx context.Context, record models.VideoRecord) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := record.AssetStatus
	if status == "" {
		status = models.AssetStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, title, description, visibility, duration, thumbnail_url, created_at, asset_status, asset_size)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, record.AssetID, record.Title, record.Description, string(record.Visibility), record.Duration,
		record.ThumbnailURL, createdAt, status, record.AssetSize)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID loads a video record by its asset id.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, assetID string) (models.VideoRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, title, description, visibility, duration, thumbnail_url, created_at, asset_status, asset_size
        FROM videos
        WHERE id = $1
    `, assetID)

	var record models.VideoRecord
	var visibility string
	if err := row.Scan(&record.AssetID, &record.Title, &record.Description, &visibility, &record.Duration,
		&record.ThumbnailURL, &record.CreatedAt, &record.AssetStatus, &record.AssetSize); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoRecord{}, ErrNotFound
		}
		return models.VideoRecord{}, fmt.Errorf("select video: %w", err)
	}

	record.Visibility = models.Visibility(visibility)
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

// MarkAssetReady records that the source object was found in the bucket.
func (r *PostgresVideoRepository) MarkAssetReady(ctx context.Context, assetID string, size int64) error {
	return r.updateStatus(ctx, assetID, models.AssetStatusReady, size)
}

// MarkAssetFailed records that the source object never arrived.
func (r *PostgresVideoRepository) MarkAssetFailed(ctx context.Context, assetID string) error {
	return r.updateStatus(ctx, assetID, models.AssetStatusFailed, 0)
}

func (r *PostgresVideoRepository) updateStatus(ctx context.Context, assetID, status string, size int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2, asset_size = $3
        WHERE id = $1
    `, assetID, status, size)
	if err != nil {
		return fmt.Errorf("update video asset status %s: %w", status, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ videos.AssetStatusUpdater = (*PostgresVideoRepository)(nil)
var _ videos.Lookup = (*PostgresVideoRepository)(nil)
