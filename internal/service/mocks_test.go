package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/transfer"
)

// In-memory fakes for the repository and client interfaces, shared by
// the tests in this package.

type stubPostRepo struct {
	mu        sync.Mutex
	posts     map[int64]*models.Post
	published map[int64]string
	failed    map[int64]string
	statuses  map[int64]string
	schedules map[int64]*time.Time
}

func newStubPostRepo(posts ...*models.Post) *stubPostRepo {
	r := &stubPostRepo{
		posts:     make(map[int64]*models.Post),
		published: make(map[int64]string),
		failed:    make(map[int64]string),
		statuses:  make(map[int64]string),
		schedules: make(map[int64]*time.Time),
	}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *stubPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.posts) + 1)
	post.ID = id
	r.posts[id] = post
	return id, nil
}

func (r *stubPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id], nil
}

func (r *stubPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r *stubPostRepo) ListDueWithImages(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.PostWithImages, error) {
	return nil, nil
}

func (r *stubPostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[postID] = status
	if p, ok := r.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (r *stubPostRepo) UpdateSchedule(ctx context.Context, postID int64, status string, scheduledFor *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[postID] = status
	r.schedules[postID] = scheduledFor
	if p, ok := r.posts[postID]; ok {
		p.Status = status
		p.ScheduledFor = scheduledFor
	}
	return nil
}

func (r *stubPostRepo) MarkPublished(ctx context.Context, postID int64, linkedinPostID string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[postID] = linkedinPostID
	if p, ok := r.posts[postID]; ok {
		p.Status = models.PostStatusPublished
		p.LinkedinPostID = linkedinPostID
		p.PublishedAt = &publishedAt
	}
	return nil
}

func (r *stubPostRepo) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[postID] = errorMessage
	if p, ok := r.posts[postID]; ok {
		p.Status = models.PostStatusFailed
		p.ErrorMessage = errorMessage
	}
	return nil
}

func (r *stubPostRepo) UpcomingCounts(ctx context.Context, from, until time.Time) ([]*models.UpcomingSlot, error) {
	return nil, nil
}

func (r *stubPostRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type stubImageRepo struct {
	mu      sync.Mutex
	created []*models.PostImage
	byPost  map[int64][]*models.PostImage
}

func newStubImageRepo() *stubImageRepo {
	return &stubImageRepo{byPost: make(map[int64][]*models.PostImage)}
}

func (r *stubImageRepo) Create(ctx context.Context, tx *sql.Tx, img *models.PostImage) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.created) + 1)
	img.ID = id
	r.created = append(r.created, img)
	r.byPost[img.PostID] = append(r.byPost[img.PostID], img)
	return id, nil
}

func (r *stubImageRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byPost[postID], nil
}

func (r *stubImageRepo) RemoveByPostID(ctx context.Context, postID int64) error {
	return nil
}

type stubProfileRepo struct {
	profile *models.LinkedinProfile
	err     error
}

func (r *stubProfileRepo) Upsert(ctx context.Context, profile *models.LinkedinProfile) (int64, error) {
	r.profile = profile
	return 1, nil
}

func (r *stubProfileRepo) GetByUserID(ctx context.Context, userID int64) (*models.LinkedinProfile, error) {
	return r.profile, r.err
}

func (r *stubProfileRepo) Remove(ctx context.Context, userID int64) error {
	r.profile = nil
	return nil
}

type stubRunRepo struct {
	stats  *models.DispatchStats
	recent []*models.DispatchRun
}

func (r *stubRunRepo) Create(ctx context.Context, run *models.DispatchRun) (int64, error) {
	return 1, nil
}

func (r *stubRunRepo) GetByID(ctx context.Context, id int64) (*models.DispatchRun, error) {
	return nil, nil
}

func (r *stubRunRepo) Finalize(ctx context.Context, id int64, status string, total, successful, failed int, durationMs int64, errorMessage string) error {
	return nil
}

func (r *stubRunRepo) FinalizeLatestRunning(ctx context.Context, errorMessage string) error {
	return nil
}

func (r *stubRunRepo) ListRecent(ctx context.Context, limit int) ([]*models.DispatchRun, error) {
	return r.recent, nil
}

func (r *stubRunRepo) GetStats(ctx context.Context) (*models.DispatchStats, error) {
	return r.stats, nil
}

// fakeLinkedin records every call and delegates to pluggable funcs.
type fakeLinkedin struct {
	mu             sync.Mutex
	registerCalls  int
	uploadCalls    int
	createAttempts int
	lastParams     *transfer.UGCPostParams

	registerFn func(call int) (*transfer.ImageUploadSlot, error)
	uploadFn   func(call int) error
	createFn   func(attempt int, params *transfer.UGCPostParams) (string, error)
}

func (f *fakeLinkedin) RegisterImageUpload(ctx context.Context, accessToken, authorURN string) (*transfer.ImageUploadSlot, error) {
	f.mu.Lock()
	f.registerCalls++
	call := f.registerCalls
	f.mu.Unlock()
	if f.registerFn != nil {
		return f.registerFn(call)
	}
	return &transfer.ImageUploadSlot{UploadURL: "https://upload.example/slot", AssetURN: "urn:li:digitalmediaAsset:test"}, nil
}

func (f *fakeLinkedin) UploadBinary(ctx context.Context, uploadURL, accessToken string, data []byte) error {
	f.mu.Lock()
	f.uploadCalls++
	call := f.uploadCalls
	f.mu.Unlock()
	if f.uploadFn != nil {
		return f.uploadFn(call)
	}
	return nil
}

func (f *fakeLinkedin) CreatePost(ctx context.Context, accessToken string, params *transfer.UGCPostParams) (string, error) {
	f.mu.Lock()
	f.createAttempts++
	attempt := f.createAttempts
	f.lastParams = params
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(attempt, params)
	}
	return "urn:li:share:1", nil
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) EnsureFresh(ctx context.Context, profile *models.LinkedinProfile) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.token != "" {
		return f.token, nil
	}
	return "test-token", nil
}
