package models

import "time"

type Post struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Body           string     `db:"body" json:"body"`
	Visibility     string     `db:"visibility" json:"visibility"`
	Status         string     `db:"status" json:"status"` // draft, scheduled, published, failed
	ScheduledFor   *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	LinkedinPostID string     `db:"linkedin_post_id" json:"linkedin_post_id,omitempty"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	IsRepost       bool       `db:"is_repost" json:"is_repost"`
	RepostOfURN    string     `db:"repost_of_urn" json:"repost_of_urn,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type PostImage struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	StorageURL   string    `db:"storage_url" json:"storage_url,omitempty"`
	AssetURN     string    `db:"asset_urn" json:"asset_urn,omitempty"`
	UploadStatus string    `db:"upload_status" json:"upload_status"` // pending, uploaded, failed
	UploadError  string    `db:"upload_error" json:"upload_error,omitempty"`
	FileName     string    `db:"file_name" json:"file_name"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PostWithImages is what the dispatcher works with: a due post together
// with its image rows, joined in a single query.
type PostWithImages struct {
	Post   *Post
	Images []*PostImage
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	VisibilityPublic      = "PUBLIC"
	VisibilityConnections = "CONNECTIONS"
)

const (
	UploadStatusPending  = "pending"
	UploadStatusUploaded = "uploaded"
	UploadStatusFailed   = "failed"
)

const MaxImagesPerPost = 9

func ValidPostStatus(s string) bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityConnections
}

func ValidUploadStatus(s string) bool {
	switch s {
	case UploadStatusPending, UploadStatusUploaded, UploadStatusFailed:
		return true
	}
	return false
}

// postTransitions enumerates the legal lifecycle edges. "published" is
// terminal: the dispatcher never re-publishes a published post.
var postTransitions = map[string][]string{
	PostStatusDraft:     {PostStatusScheduled, PostStatusPublished, PostStatusFailed},
	PostStatusScheduled: {PostStatusPublished, PostStatusDraft, PostStatusScheduled, PostStatusFailed},
	PostStatusFailed:    {PostStatusScheduled, PostStatusPublished, PostStatusFailed},
	PostStatusPublished: {},
}

func CanTransition(from, to string) bool {
	for _, next := range postTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
