package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sahilm27/linklater/internal/models"
)

type PostImageRepository interface {
	Create(ctx context.Context, tx *sql.Tx, img *models.PostImage) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostImage, error)
	RemoveByPostID(ctx context.Context, postID int64) error
}

type postImageRepository struct {
	db *sql.DB
}

func NewPostImageRepository(db *sql.DB) PostImageRepository {
	return &postImageRepository{db: db}
}

func (r *postImageRepository) Create(ctx context.Context, tx *sql.Tx, img *models.PostImage) (int64, error) {
	query := `
		INSERT INTO post_images (post_id, user_id, storage_url, asset_urn, upload_status, upload_error, file_name, file_type, file_size, display_order)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, img.PostID, img.UserID, img.StorageURL, img.AssetURN,
			img.UploadStatus, img.UploadError, img.FileName, img.FileType, img.FileSize, img.DisplayOrder).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, img.PostID, img.UserID, img.StorageURL, img.AssetURN,
			img.UploadStatus, img.UploadError, img.FileName, img.FileType, img.FileSize, img.DisplayOrder).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postImageRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostImage, error) {
	query := `
		SELECT id, post_id, user_id, COALESCE(storage_url, ''), COALESCE(asset_urn, ''),
			upload_status, COALESCE(upload_error, ''), file_name, file_type, file_size, display_order, created_at
		FROM post_images
		WHERE post_id = $1
		ORDER BY display_order
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var images []*models.PostImage
	for rows.Next() {
		var img models.PostImage
		err := rows.Scan(&img.ID, &img.PostID, &img.UserID, &img.StorageURL, &img.AssetURN,
			&img.UploadStatus, &img.UploadError, &img.FileName, &img.FileType, &img.FileSize,
			&img.DisplayOrder, &img.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		images = append(images, &img)
	}

	return images, rows.Err()
}

func (r *postImageRepository) RemoveByPostID(ctx context.Context, postID int64) error {
	query := `DELETE FROM post_images WHERE post_id = $1`
	_, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
