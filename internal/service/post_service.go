package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/sahilm27/linklater/internal/apperrors"
	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/repository"
	"github.com/sahilm27/linklater/internal/transfer"
)

const scheduledTimeLayout = time.RFC3339

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, bool, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Reschedule(ctx context.Context, userID, postID int64, scheduledFor time.Time) error
	ConvertToDraft(ctx context.Context, userID, postID int64) error
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	pi repository.PostImageRepository
	lp repository.ProfileRepository
	up UploadService
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pi repository.PostImageRepository,
	lp repository.ProfileRepository,
	up UploadService) PostService {
	return &postService{
		db: db,
		pr: pr,
		pi: pi,
		lp: lp,
		up: up,
	}
}

// CreatePost validates the request, writes the post and its images in
// one transaction, and reports whether the caller should enqueue an
// immediate publish. Initial status is caller-supplied: draft, scheduled
// or published (an immediate publish attempt).
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (postID int64, publishNow bool, err error) {
	if pc == nil || pc.Body == "" {
		return 0, false, apperrors.NewValidation("post body cannot be empty")
	}

	visibility := pc.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(visibility) {
		return 0, false, apperrors.NewValidation("unknown visibility %q", pc.Visibility)
	}

	status := pc.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if !models.ValidPostStatus(status) || status == models.PostStatusFailed {
		return 0, false, apperrors.NewValidation("unknown post status %q", pc.Status)
	}

	if len(files) > models.MaxImagesPerPost {
		return 0, false, apperrors.NewValidation("a post can carry at most %d images", models.MaxImagesPerPost)
	}

	if pc.IsRepost && pc.RepostOfURN == "" {
		return 0, false, apperrors.NewValidation("repost requires the original post reference")
	}

	status, scheduledFor, publishNow, err := resolveInitialState(status, pc.ScheduledFor)
	if err != nil {
		return 0, false, err
	}

	profile, err := s.lp.GetByUserID(ctx, userID)
	if err != nil {
		return 0, false, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:       userID,
		Body:         pc.Body,
		Visibility:   visibility,
		Status:       status,
		ScheduledFor: scheduledFor,
		IsRepost:     pc.IsRepost,
		RepostOfURN:  pc.RepostOfURN,
	}

	postID, err = s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, false, fmt.Errorf("error creating post: %w", err)
	}

	policy := UploadDualDestination
	if status == models.PostStatusDraft && !publishNow {
		policy = UploadDraftOnly
	}

	if _, err = s.up.ProcessImages(ctx, tx, userID, postID, profile, files, policy); err != nil {
		return 0, false, fmt.Errorf("error processing images: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return postID, publishNow, nil
}

// resolveInitialState maps the requested status onto the stored status
// and schedule. An immediate publish is held as a draft with no
// scheduled time and settled by the queue worker, so it never enters
// the dispatcher's due set and only one writer touches it.
func resolveInitialState(requested, scheduledForRaw string) (string, *time.Time, bool, error) {
	switch requested {
	case models.PostStatusScheduled:
		t, err := time.Parse(scheduledTimeLayout, scheduledForRaw)
		if err != nil {
			return "", nil, false, apperrors.NewValidation("invalid scheduled time format: %v", err)
		}
		if !t.After(time.Now()) {
			return "", nil, false, apperrors.NewValidation("scheduled time must be in the future")
		}
		return requested, &t, false, nil
	case models.PostStatusPublished:
		return models.PostStatusDraft, nil, true, nil
	default:
		return requested, nil, false, nil
	}
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Reschedule moves a post (back) onto the schedule. Allowed from
// scheduled (a plain reschedule), from draft, and from failed (the
// retry-via-resubmit path). The new time must remain in the future.
func (s *postService) Reschedule(ctx context.Context, userID, postID int64, scheduledFor time.Time) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if !models.CanTransition(post.Status, models.PostStatusScheduled) {
		return apperrors.NewValidation("post in status %q cannot be scheduled", post.Status)
	}
	if !scheduledFor.After(time.Now()) {
		return apperrors.NewValidation("scheduled time must be in the future")
	}

	return s.pr.UpdateSchedule(ctx, postID, models.PostStatusScheduled, &scheduledFor)
}

// ConvertToDraft takes a scheduled post off the queue and clears its
// scheduled time.
func (s *postService) ConvertToDraft(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if !models.CanTransition(post.Status, models.PostStatusDraft) {
		return apperrors.NewValidation("post in status %q cannot be converted to draft", post.Status)
	}

	return s.pr.UpdateSchedule(ctx, postID, models.PostStatusDraft, nil)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if userID == 0 {
		return nil, apperrors.NewValidation("user is not valid")
	}
	if postID == 0 {
		return nil, apperrors.NewValidation("post id is not valid")
	}

	isOwner, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		err := apperrors.NewValidation("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, fmt.Errorf("error getting post info")
	}
	return post, nil
}
