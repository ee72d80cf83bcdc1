package job

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sahilm27/linklater/internal/apperrors"
	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/service"
	"github.com/sahilm27/linklater/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jobPostRepo holds scheduled posts in memory and answers the due query
// with real half-open window semantics.
type jobPostRepo struct {
	mu        sync.Mutex
	due       []*models.PostWithImages
	listErr   error
	published map[int64]string
	failed    map[int64]string
	statuses  map[int64]string
}

func newJobPostRepo(due ...*models.PostWithImages) *jobPostRepo {
	return &jobPostRepo{
		due:       due,
		published: make(map[int64]string),
		failed:    make(map[int64]string),
		statuses:  make(map[int64]string),
	}
}

func (r *jobPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, nil
}

// GetByID reflects recorded outcomes on a copy so callers always see
// the current status.
func (r *jobPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.due {
		if item.Post.ID != id {
			continue
		}
		post := *item.Post
		if urn, ok := r.published[id]; ok {
			post.Status = models.PostStatusPublished
			post.LinkedinPostID = urn
		} else if msg, ok := r.failed[id]; ok {
			post.Status = models.PostStatusFailed
			post.ErrorMessage = msg
		}
		return &post, nil
	}
	return nil, nil
}

func (r *jobPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}

func (r *jobPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return true, nil
}

func (r *jobPostRepo) ListDueWithImages(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.PostWithImages, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PostWithImages
	for _, item := range r.due {
		t := item.Post.ScheduledFor
		if t == nil || item.Post.Status != models.PostStatusScheduled {
			continue
		}
		if !t.Before(windowStart) && t.Before(windowEnd) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *jobPostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[postID] = status
	return nil
}

func (r *jobPostRepo) UpdateSchedule(ctx context.Context, postID int64, status string, scheduledFor *time.Time) error {
	return nil
}

func (r *jobPostRepo) MarkPublished(ctx context.Context, postID int64, linkedinPostID string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[postID] = linkedinPostID
	return nil
}

func (r *jobPostRepo) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[postID] = errorMessage
	return nil
}

func (r *jobPostRepo) UpcomingCounts(ctx context.Context, from, until time.Time) ([]*models.UpcomingSlot, error) {
	return nil, nil
}

func (r *jobPostRepo) Remove(ctx context.Context, id int64) error { return nil }

// jobRunRepo is the in-memory ledger.
type jobRunRepo struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*models.DispatchRun
}

func newJobRunRepo() *jobRunRepo {
	return &jobRunRepo{runs: make(map[int64]*models.DispatchRun)}
}

func (r *jobRunRepo) Create(ctx context.Context, run *models.DispatchRun) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *run
	stored.ID = r.nextID
	r.runs[r.nextID] = &stored
	return r.nextID, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, id int64) (*models.DispatchRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id], nil
}

func (r *jobRunRepo) Finalize(ctx context.Context, id int64, status string, total, successful, failed int, durationMs int64, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.Status != models.RunStatusRunning {
		return fmt.Errorf("no running run %d", id)
	}
	now := time.Now().UTC()
	run.Status = status
	run.TotalPosts = total
	run.SuccessfulPosts = successful
	run.FailedPosts = failed
	run.DurationMs = durationMs
	run.ErrorMessage = errorMessage
	run.CompletedAt = &now
	return nil
}

func (r *jobRunRepo) FinalizeLatestRunning(ctx context.Context, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.DispatchRun
	for _, run := range r.runs {
		if run.Status != models.RunStatusRunning {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil
	}
	now := time.Now().UTC()
	latest.Status = models.RunStatusFailed
	latest.ErrorMessage = errorMessage
	latest.CompletedAt = &now
	return nil
}

func (r *jobRunRepo) ListRecent(ctx context.Context, limit int) ([]*models.DispatchRun, error) {
	return nil, nil
}

func (r *jobRunRepo) GetStats(ctx context.Context) (*models.DispatchStats, error) {
	return nil, nil
}

// stubPublisher settles each post via a pluggable function.
type stubPublisher struct {
	mu      sync.Mutex
	calls   []int64
	publish func(post *models.Post) (string, error)
}

func (p *stubPublisher) Publish(ctx context.Context, post *models.Post, images []*models.PostImage) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, post.ID)
	p.mu.Unlock()
	if p.publish != nil {
		return p.publish(post)
	}
	return fmt.Sprintf("urn:li:share:%d", post.ID), nil
}

func (p *stubPublisher) HandlePost(ctx context.Context, postID int64) error { return nil }

func testConfig() DispatcherConfig {
	return DispatcherConfig{BatchSize: 50, BatchPause: 0, PersistPostErrors: true}
}

func scheduledPost(id int64, due time.Time, images ...*models.PostImage) *models.PostWithImages {
	return &models.PostWithImages{
		Post: &models.Post{
			ID:           id,
			UserID:       7,
			Body:         fmt.Sprintf("post %d", id),
			Visibility:   models.VisibilityPublic,
			Status:       models.PostStatusScheduled,
			ScheduledFor: &due,
		},
		Images: images,
	}
}

var (
	windowStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 3, 1, 10, 1, 0, 0, time.UTC)
)

func TestDispatchWindowBoundaries(t *testing.T) {
	pr := newJobPostRepo(
		scheduledPost(1, windowStart),                     // inclusive lower bound
		scheduledPost(2, windowStart.Add(59*time.Second)), // inside
		scheduledPost(3, windowEnd),                       // exclusive upper bound
		scheduledPost(4, windowStart.Add(-time.Second)),   // before the window
	)
	dr := newJobRunRepo()
	pub := &stubPublisher{}

	j := NewDispatchJob(pr, dr, pub, testConfig())
	run, err := j.Dispatch(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalPosts)
	assert.Equal(t, 2, run.SuccessfulPosts)
	assert.Equal(t, 0, run.FailedPosts)

	assert.Contains(t, pr.published, int64(1))
	assert.Contains(t, pr.published, int64(2))
	assert.NotContains(t, pr.published, int64(3))
	assert.NotContains(t, pr.published, int64(4))
}

func TestDispatchEmptyWindow(t *testing.T) {
	dr := newJobRunRepo()
	j := NewDispatchJob(newJobPostRepo(), dr, &stubPublisher{}, testConfig())

	run, err := j.Dispatch(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 0, run.TotalPosts)
	require.NotNil(t, dr.runs[run.ID].CompletedAt)
}

func TestDispatchIsolatesPostFailures(t *testing.T) {
	pr := newJobPostRepo(
		scheduledPost(1, windowStart),
		scheduledPost(2, windowStart.Add(30*time.Second)),
	)
	dr := newJobRunRepo()
	pub := &stubPublisher{
		publish: func(post *models.Post) (string, error) {
			if post.ID == 1 {
				return "", &apperrors.UpstreamError{Op: "createPost", StatusCode: 400, Body: "bad payload"}
			}
			return "urn:li:share:2", nil
		},
	}

	j := NewDispatchJob(pr, dr, pub, testConfig())
	run, err := j.Dispatch(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalPosts)
	assert.Equal(t, 1, run.SuccessfulPosts)
	assert.Equal(t, 1, run.FailedPosts)

	assert.Contains(t, pr.failed[1], "status 400")
	assert.Equal(t, "urn:li:share:2", pr.published[2])
}

func TestDispatchErrorPersistenceToggle(t *testing.T) {
	pr := newJobPostRepo(scheduledPost(1, windowStart))
	pub := &stubPublisher{
		publish: func(post *models.Post) (string, error) {
			return "", fmt.Errorf("boom")
		},
	}

	cfg := testConfig()
	cfg.PersistPostErrors = false
	j := NewDispatchJob(pr, newJobRunRepo(), pub, cfg)

	run, err := j.Dispatch(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, 1, run.FailedPosts)
	assert.Empty(t, pr.failed)
	assert.Equal(t, models.PostStatusFailed, pr.statuses[1])
}

func TestDispatchLedgerNeverStuck(t *testing.T) {
	pr := newJobPostRepo()
	pr.listErr = fmt.Errorf("connection reset")
	dr := newJobRunRepo()

	j := NewDispatchJob(pr, dr, &stubPublisher{}, testConfig())
	_, err := j.Dispatch(context.Background(), windowStart, windowEnd)

	require.Error(t, err)
	run := dr.runs[1]
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "connection reset")
	require.NotNil(t, run.CompletedAt)
}

func TestDispatchDrainsAcrossBatches(t *testing.T) {
	var due []*models.PostWithImages
	for i := int64(1); i <= 5; i++ {
		due = append(due, scheduledPost(i, windowStart.Add(time.Duration(i)*time.Second)))
	}
	pr := newJobPostRepo(due...)

	cfg := testConfig()
	cfg.BatchSize = 2
	j := NewDispatchJob(pr, newJobRunRepo(), &stubPublisher{}, cfg)

	run, err := j.Dispatch(context.Background(), windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, 5, run.TotalPosts)
	assert.Equal(t, 5, run.SuccessfulPosts)
	assert.Len(t, pr.published, 5)
}

func TestFallbackWindow(t *testing.T) {
	start, end := FallbackWindow()

	assert.Equal(t, 6*time.Minute, end.Sub(start))
	assert.Zero(t, start.Second())
	assert.Zero(t, end.Second())
	assert.False(t, end.Before(time.Now().UTC()))
}

// jobProfileRepo, jobImageRepo, jobLinkedin and jobTokens back the
// end-to-end scenario through the real publisher.

type jobProfileRepo struct{ profile *models.LinkedinProfile }

func (r *jobProfileRepo) Upsert(ctx context.Context, profile *models.LinkedinProfile) (int64, error) {
	return 1, nil
}

func (r *jobProfileRepo) GetByUserID(ctx context.Context, userID int64) (*models.LinkedinProfile, error) {
	return r.profile, nil
}

func (r *jobProfileRepo) Remove(ctx context.Context, userID int64) error { return nil }

type jobImageRepo struct{}

func (r *jobImageRepo) Create(ctx context.Context, tx *sql.Tx, img *models.PostImage) (int64, error) {
	return 0, nil
}

func (r *jobImageRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostImage, error) {
	return nil, nil
}

func (r *jobImageRepo) RemoveByPostID(ctx context.Context, postID int64) error { return nil }

type jobLinkedin struct {
	mu     sync.Mutex
	delay  time.Duration
	params []*transfer.UGCPostParams
}

func (f *jobLinkedin) RegisterImageUpload(ctx context.Context, accessToken, authorURN string) (*transfer.ImageUploadSlot, error) {
	return nil, fmt.Errorf("not expected in dispatch")
}

func (f *jobLinkedin) UploadBinary(ctx context.Context, uploadURL, accessToken string, data []byte) error {
	return fmt.Errorf("not expected in dispatch")
}

func (f *jobLinkedin) CreatePost(ctx context.Context, accessToken string, params *transfer.UGCPostParams) (string, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return "urn:li:share:123", nil
}

func (f *jobLinkedin) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.params)
}

type jobTokens struct{}

func (jobTokens) EnsureFresh(ctx context.Context, profile *models.LinkedinProfile) (string, error) {
	return "token", nil
}

func TestDispatchPublishesDuePostWithItsImages(t *testing.T) {
	due := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	pr := newJobPostRepo(scheduledPost(1, due,
		&models.PostImage{PostID: 1, DisplayOrder: 0, UploadStatus: models.UploadStatusUploaded, AssetURN: "asset-1"},
		&models.PostImage{PostID: 1, DisplayOrder: 1, UploadStatus: models.UploadStatusUploaded, AssetURN: "asset-2"},
	))
	pr.due[0].Post.Body = "Hello"
	dr := newJobRunRepo()

	li := &jobLinkedin{}
	profiles := &jobProfileRepo{profile: &models.LinkedinProfile{
		UserID:    7,
		MemberURN: "urn:li:person:abc",
	}}
	pub := service.NewPublisher(pr, &jobImageRepo{}, profiles, li, jobTokens{}, service.RetryConfig{MaxRetries: 2, Delay: 0})

	j := NewDispatchJob(pr, dr, pub, testConfig())
	run, err := j.Dispatch(context.Background(), due, due.Add(time.Minute))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.TotalPosts)
	assert.Equal(t, 1, run.SuccessfulPosts)
	assert.Equal(t, 0, run.FailedPosts)

	require.Len(t, li.params, 1)
	assert.Equal(t, "urn:li:person:abc", li.params[0].AuthorURN)
	assert.Equal(t, "Hello", li.params[0].Text)
	assert.Equal(t, []string{"asset-1", "asset-2"}, li.params[0].AssetURNs)

	assert.Equal(t, "urn:li:share:123", pr.published[1])
}

// A worker-initiated publish and a dispatch cycle racing over the same
// post must produce exactly one remote create call.
func TestConcurrentPublishersSettleOnce(t *testing.T) {
	due := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	pr := newJobPostRepo(scheduledPost(1, due))
	dr := newJobRunRepo()

	li := &jobLinkedin{delay: 200 * time.Millisecond}
	profiles := &jobProfileRepo{profile: &models.LinkedinProfile{
		UserID:    7,
		MemberURN: "urn:li:person:abc",
	}}
	pub := service.NewPublisher(pr, &jobImageRepo{}, profiles, li, jobTokens{}, service.RetryConfig{MaxRetries: 2, Delay: 0})

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- pub.HandlePost(context.Background(), 1)
	}()
	time.Sleep(50 * time.Millisecond)

	j := NewDispatchJob(pr, dr, pub, testConfig())
	run, err := j.Dispatch(context.Background(), due, due.Add(time.Minute))

	require.NoError(t, err)
	require.NoError(t, <-workerDone)

	assert.Equal(t, 1, li.createCalls())
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, "urn:li:share:123", pr.published[1])
}
