package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sahilm27/linklater/internal/apperrors"
	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/repository"
	"github.com/sahilm27/linklater/internal/transfer"
)

// RetryConfig bounds the per-post retry loop: MaxRetries extra attempts
// after the first, with a linearly increasing pause (Delay × attempt).
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

var DefaultRetryConfig = RetryConfig{MaxRetries: 2, Delay: time.Second}

// Publisher turns one post into one LinkedIn create call. Publish is the
// pure per-post routine used by the dispatcher; HandlePost is the
// interactive/queue path that also updates the post row.
type Publisher interface {
	Publish(ctx context.Context, post *models.Post, images []*models.PostImage) (string, error)
	HandlePost(ctx context.Context, postID int64) error
}

type publisher struct {
	pr    repository.PostRepository
	pi    repository.PostImageRepository
	lp    repository.ProfileRepository
	li    LinkedinClient
	tp    TokenProvider
	retry RetryConfig

	// One publish attempt per post at a time. The dispatcher, the queue
	// worker and the interactive endpoint all share one publisher, so an
	// in-process claim is enough to keep a single writer per post.
	mu       sync.Mutex
	inflight map[int64]struct{}
}

func NewPublisher(
	pr repository.PostRepository,
	pi repository.PostImageRepository,
	lp repository.ProfileRepository,
	li LinkedinClient,
	tp TokenProvider,
	retry RetryConfig) Publisher {
	return &publisher{
		pr:       pr,
		pi:       pi,
		lp:       lp,
		li:       li,
		tp:       tp,
		retry:    retry,
		inflight: make(map[int64]struct{}),
	}
}

func (p *publisher) claim(postID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, held := p.inflight[postID]; held {
		return false
	}
	p.inflight[postID] = struct{}{}
	return true
}

func (p *publisher) release(postID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, postID)
}

// Publish looks up the owner's profile, collects the asset URNs of the
// images that made it to LinkedIn, and creates the post. Transient
// upstream failures are retried; everything else fails immediately.
// The post is claimed for the duration of the call and its status
// re-read under the claim: if another writer holds the claim or has
// already published it, ErrPublishConflict tells the caller to skip.
func (p *publisher) Publish(ctx context.Context, post *models.Post, images []*models.PostImage) (string, error) {
	if !p.claim(post.ID) {
		return "", apperrors.ErrPublishConflict
	}
	defer p.release(post.ID)

	current, err := p.pr.GetByID(ctx, post.ID)
	if err != nil {
		return "", err
	}
	if current != nil && current.Status == models.PostStatusPublished {
		return "", apperrors.ErrPublishConflict
	}

	profile, err := p.lp.GetByUserID(ctx, post.UserID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", &apperrors.ProfileMissingError{UserID: post.UserID}
	}

	token, err := p.tp.EnsureFresh(ctx, profile)
	if err != nil {
		return "", err
	}

	params := &transfer.UGCPostParams{
		AuthorURN:  profile.MemberURN,
		Text:       post.Body,
		AssetURNs:  collectAssetURNs(images),
		Visibility: post.Visibility,
	}
	if post.IsRepost {
		params.RepostOfURN = post.RepostOfURN
	}

	var externalID string
	for attempt := 1; ; attempt++ {
		externalID, err = p.li.CreatePost(ctx, token, params)
		if err == nil {
			break
		}
		if attempt > p.retry.MaxRetries || !apperrors.IsTransient(err) {
			return "", err
		}
		slog.Info("retrying post publish after transient error",
			"post_id", post.ID, "attempt", attempt, "error", err)

		select {
		case <-time.After(p.retry.Delay * time.Duration(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return externalID, nil
}

// HandlePost is the single-post publish path used by the queue worker
// and the interactive endpoint. Unlike the batch path its failure branch
// always writes the error back onto the post row.
func (p *publisher) HandlePost(ctx context.Context, postID int64) error {
	post, err := p.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return apperrors.NewValidation("post %d does not exist", postID)
	}
	if post.Status == models.PostStatusPublished {
		return nil
	}
	if !models.CanTransition(post.Status, models.PostStatusPublished) {
		return apperrors.NewValidation("post %d cannot be published from status %q", postID, post.Status)
	}

	images, err := p.pi.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}

	externalID, err := p.Publish(ctx, post, images)
	if err != nil {
		if errors.Is(err, apperrors.ErrPublishConflict) {
			return nil
		}
		if markErr := p.pr.MarkFailed(ctx, postID, err.Error()); markErr != nil {
			slog.Error("failed to record publish error", "post_id", postID, "error", markErr)
		}
		return err
	}

	return p.pr.MarkPublished(ctx, postID, externalID, time.Now().UTC())
}

// collectAssetURNs keeps only images that completed the LinkedIn upload,
// in display order. Draft-era images without an asset URN are excluded
// from the media block.
func collectAssetURNs(images []*models.PostImage) []string {
	sorted := make([]*models.PostImage, len(images))
	copy(sorted, images)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})

	var urns []string
	for _, img := range sorted {
		if img.UploadStatus == models.UploadStatusUploaded && img.AssetURN != "" {
			urns = append(urns, img.AssetURN)
		}
	}
	return urns
}
