package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sahilm27/linklater/internal/apperrors"
	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/repository"
	"github.com/sahilm27/linklater/internal/service"
)

const (
	defaultBatchSize  = 50
	defaultBatchPause = 500 * time.Millisecond

	// Fallback window bounds when the trigger supplies none: a lookback
	// buffer for delayed invocations plus the current minute.
	windowLookback  = 5 * time.Minute
	windowLookahead = time.Minute
)

// DispatcherConfig tunes the batch fan-out. PersistPostErrors controls
// whether the batch failure branch writes the error message onto the
// post row, or only records it in the run ledger.
type DispatcherConfig struct {
	BatchSize         int
	BatchPause        time.Duration
	PersistPostErrors bool
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:         defaultBatchSize,
		BatchPause:        defaultBatchPause,
		PersistPostErrors: true,
	}
}

// DispatchJob publishes every scheduled post due in a time window and
// accounts for the outcome in the run ledger. One invocation is expected
// in flight at a time; the per-minute window serializes them.
type DispatchJob struct {
	pr  repository.PostRepository
	dr  repository.DispatchRunRepository
	pub service.Publisher
	cfg DispatcherConfig
}

func NewDispatchJob(
	pr repository.PostRepository,
	dr repository.DispatchRunRepository,
	pub service.Publisher,
	cfg DispatcherConfig) *DispatchJob {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &DispatchJob{
		pr:  pr,
		dr:  dr,
		pub: pub,
		cfg: cfg,
	}
}

// RunOnce is the cron entrypoint: dispatch the current minute.
func (j *DispatchJob) RunOnce() {
	now := time.Now().UTC().Truncate(time.Minute)
	if _, err := j.Dispatch(context.Background(), now, now.Add(time.Minute)); err != nil {
		slog.Error("dispatch run failed", "error", err)
	}
}

// FallbackWindow is used when an external trigger carries no explicit
// window.
func FallbackWindow() (time.Time, time.Time) {
	now := time.Now().UTC().Truncate(time.Minute)
	return now.Add(-windowLookback), now.Add(windowLookahead)
}

// Dispatch runs one publishing cycle over [windowStart, windowEnd).
// Per-post failures are isolated; a failure outside the per-post
// boundary finalizes the ledger row as failed so it is never left
// running.
func (j *DispatchJob) Dispatch(ctx context.Context, windowStart, windowEnd time.Time) (run *models.DispatchRun, err error) {
	started := time.Now()

	run = &models.DispatchRun{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Status:      models.RunStatusRunning,
		StartedAt:   started.UTC(),
	}

	runID, err := j.dr.Create(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("error opening dispatch run: %w", err)
	}
	run.ID = runID

	defer func() {
		if r := recover(); r != nil {
			err = j.abortRun(ctx, fmt.Errorf("panic during dispatch: %v", r))
			run = nil
		}
	}()

	due, err := j.pr.ListDueWithImages(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, j.abortRun(ctx, fmt.Errorf("error fetching due posts: %w", err))
	}

	var successful, failed int64

	for start := 0; start < len(due); start += j.cfg.BatchSize {
		end := min(start+j.cfg.BatchSize, len(due))

		j.publishBatch(ctx, due[start:end], &successful, &failed)

		if end < len(due) && j.cfg.BatchPause > 0 {
			time.Sleep(j.cfg.BatchPause)
		}
	}

	run.Status = models.RunStatusCompleted
	run.TotalPosts = len(due)
	run.SuccessfulPosts = int(successful)
	run.FailedPosts = int(failed)
	run.DurationMs = time.Since(started).Milliseconds()

	if err := j.dr.Finalize(ctx, runID, run.Status, run.TotalPosts, run.SuccessfulPosts, run.FailedPosts, run.DurationMs, ""); err != nil {
		return nil, fmt.Errorf("error finalizing dispatch run: %w", err)
	}

	slog.Info("dispatch run completed",
		"run_id", runID,
		"total", run.TotalPosts,
		"successful", run.SuccessfulPosts,
		"failed", run.FailedPosts,
		"duration_ms", run.DurationMs)

	return run, nil
}

// publishBatch fans the batch out concurrently and joins before
// returning: every post settles independently, none cancels its
// siblings.
func (j *DispatchJob) publishBatch(ctx context.Context, batch []*models.PostWithImages, successful, failed *int64) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, j.cfg.BatchSize)

	for _, item := range batch {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(item *models.PostWithImages) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.publishOne(ctx, item); err != nil {
				atomic.AddInt64(failed, 1)
				slog.Error("failed to publish scheduled post", "post_id", item.Post.ID, "error", err)
			} else {
				atomic.AddInt64(successful, 1)
			}
		}(item)
	}

	wg.Wait()
}

func (j *DispatchJob) publishOne(ctx context.Context, item *models.PostWithImages) error {
	post := item.Post

	// The due query only returns scheduled posts, but never re-publish.
	if post.Status != models.PostStatusScheduled {
		return nil
	}

	externalID, err := j.pub.Publish(ctx, post, item.Images)
	if err != nil {
		// Another writer holds the claim and will settle the post.
		if errors.Is(err, apperrors.ErrPublishConflict) {
			return nil
		}
		if j.cfg.PersistPostErrors {
			if markErr := j.pr.MarkFailed(ctx, post.ID, err.Error()); markErr != nil {
				slog.Error("failed to record publish error", "post_id", post.ID, "error", markErr)
			}
		} else {
			if markErr := j.pr.UpdateStatus(ctx, models.PostStatusFailed, post.ID); markErr != nil {
				slog.Error("failed to update post status", "post_id", post.ID, "error", markErr)
			}
		}
		return err
	}

	return j.pr.MarkPublished(ctx, post.ID, externalID, time.Now().UTC())
}

// abortRun finalizes the most recent running ledger row as failed and
// propagates the cause.
func (j *DispatchJob) abortRun(ctx context.Context, cause error) error {
	if err := j.dr.FinalizeLatestRunning(ctx, cause.Error()); err != nil {
		slog.Error("failed to finalize aborted dispatch run", "error", err)
	}
	return cause
}
