package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/sahilm27/linklater/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	ListDueWithImages(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.PostWithImages, error)
	UpdateStatus(ctx context.Context, status string, postID int64) error
	UpdateSchedule(ctx context.Context, postID int64, status string, scheduledFor *time.Time) error
	MarkPublished(ctx context.Context, postID int64, linkedinPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, postID int64, errorMessage string) error
	UpcomingCounts(ctx context.Context, from, until time.Time) ([]*models.UpcomingSlot, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, body, visibility, status, scheduled_for, published_at,
	COALESCE(linkedin_post_id, ''), COALESCE(error_message, ''), is_repost,
	COALESCE(repost_of_urn, ''), created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.UserID, &post.Body, &post.Visibility, &post.Status,
		&post.ScheduledFor, &post.PublishedAt, &post.LinkedinPostID, &post.ErrorMessage,
		&post.IsRepost, &post.RepostOfURN, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, body, visibility, status, scheduled_for, is_repost, repost_of_urn)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Body, post.Visibility, post.Status, post.ScheduledFor, post.IsRepost, post.RepostOfURN).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Body, post.Visibility, post.Status, post.ScheduledFor, post.IsRepost, post.RepostOfURN).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ListDueWithImages selects every scheduled post due in the half-open
// window [windowStart, windowEnd), joined with its images, ordered by
// scheduled_for ascending.
func (r *postRepository) ListDueWithImages(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.PostWithImages, error) {
	query := `
		SELECT p.id, p.user_id, p.body, p.visibility, p.status, p.scheduled_for, p.published_at,
			COALESCE(p.linkedin_post_id, ''), COALESCE(p.error_message, ''), p.is_repost,
			COALESCE(p.repost_of_urn, ''), p.created_at, p.updated_at,
			i.id, i.post_id, i.user_id, COALESCE(i.storage_url, ''), COALESCE(i.asset_urn, ''),
			i.upload_status, COALESCE(i.upload_error, ''), i.file_name, i.file_type, i.file_size, i.display_order
		FROM posts p
		LEFT JOIN post_images i ON i.post_id = p.id
		WHERE p.status = $1 AND p.scheduled_for >= $2 AND p.scheduled_for < $3
		ORDER BY p.scheduled_for ASC, p.id ASC, i.display_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, windowStart, windowEnd)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var due []*models.PostWithImages
	byID := make(map[int64]*models.PostWithImages)

	for rows.Next() {
		var post models.Post
		var imgID, imgPostID, imgUserID, imgFileSize sql.NullInt64
		var imgStorageURL, imgAssetURN, imgStatus, imgError, imgFileName, imgFileType sql.NullString
		var imgOrder sql.NullInt64

		err := rows.Scan(&post.ID, &post.UserID, &post.Body, &post.Visibility, &post.Status,
			&post.ScheduledFor, &post.PublishedAt, &post.LinkedinPostID, &post.ErrorMessage,
			&post.IsRepost, &post.RepostOfURN, &post.CreatedAt, &post.UpdatedAt,
			&imgID, &imgPostID, &imgUserID, &imgStorageURL, &imgAssetURN,
			&imgStatus, &imgError, &imgFileName, &imgFileType, &imgFileSize, &imgOrder)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		entry, ok := byID[post.ID]
		if !ok {
			entry = &models.PostWithImages{Post: &post}
			byID[post.ID] = entry
			due = append(due, entry)
		}

		if imgID.Valid {
			entry.Images = append(entry.Images, &models.PostImage{
				ID:           imgID.Int64,
				PostID:       imgPostID.Int64,
				UserID:       imgUserID.Int64,
				StorageURL:   imgStorageURL.String,
				AssetURN:     imgAssetURN.String,
				UploadStatus: imgStatus.String,
				UploadError:  imgError.String,
				FileName:     imgFileName.String,
				FileType:     imgFileType.String,
				FileSize:     imgFileSize.Int64,
				DisplayOrder: int(imgOrder.Int64),
			})
		}
	}

	return due, rows.Err()
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateSchedule(ctx context.Context, postID int64, status string, scheduledFor *time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_for = $2,
			error_message = NULL,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, scheduledFor, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkPublished(ctx context.Context, postID int64, linkedinPostID string, publishedAt time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			linkedin_post_id = $2,
			published_at = $3,
			scheduled_for = NULL,
			error_message = NULL,
			updated_at = $4
		WHERE id = $5 AND status <> $1
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, linkedinPostID, publishedAt, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	query := `
		UPDATE posts
		SET status = $1,
			error_message = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, errorMessage, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpcomingCounts groups future scheduled posts by their exact due instant,
// bounded by [from, until). Computed from the posts table, not the ledger.
func (r *postRepository) UpcomingCounts(ctx context.Context, from, until time.Time) ([]*models.UpcomingSlot, error) {
	query := `
		SELECT scheduled_for, COUNT(*)
		FROM posts
		WHERE status = $1 AND scheduled_for >= $2 AND scheduled_for < $3
		GROUP BY scheduled_for
		ORDER BY scheduled_for ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, from, until)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var slots []*models.UpcomingSlot
	for rows.Next() {
		var slot models.UpcomingSlot
		if err := rows.Scan(&slot.ScheduledFor, &slot.PostCount); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		slots = append(slots, &slot)
	}
	return slots, rows.Err()
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
