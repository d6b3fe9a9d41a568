package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPostRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
}

func newMemoryPostRepo() *memoryPostRepo {
	return &memoryPostRepo{posts: map[int64]*models.Post{}}
}

func (r *memoryPostRepo) put(p models.Post) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.posts[p.ID] = &p
	return p.ID
}

func (r *memoryPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memoryPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return r.put(*post), nil
}

func (r *memoryPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryPostRepo) ListByStatus(ctx context.Context, userID int64, status models.PostStatus) ([]*models.Post, error) {
	return nil, errors.New("not used")
}

func (r *memoryPostRepo) ListUserIDsByStatus(ctx context.Context, status models.PostStatus) ([]int64, error) {
	return nil, errors.New("not used")
}

func (r *memoryPostRepo) UpdateStatus(ctx context.Context, postID int64, status models.PostStatus, fields models.StatusFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return errors.New("missing")
	}
	p.Status = status
	p.LastError = fields.LastError
	if fields.ScheduledFor != nil {
		p.ScheduledFor = *fields.ScheduledFor
	}
	if fields.PublishedAt != nil {
		p.PublishedAt = fields.PublishedAt
	}
	return nil
}

func (r *memoryPostRepo) ClaimForPublishing(ctx context.Context, postID int64, from models.PostStatus) (bool, error) {
	return false, errors.New("not used")
}

func (r *memoryPostRepo) FailStalePublishing(ctx context.Context, before time.Time, reason string) (int64, error) {
	return 0, errors.New("not used")
}

func (r *memoryPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r *memoryPostRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestPostService(repo *memoryPostRepo) *postService {
	return &postService{pr: repo, now: func() time.Time { return fixedNow }}
}

func TestCreatePostScheduledConvertsZone(t *testing.T) {
	repo := newMemoryPostRepo()
	svc := newTestPostService(repo)

	post, err := svc.CreatePost(context.Background(), 1, &transfer.PostCreation{
		Content:       "spring sale",
		Platforms:     []string{"Facebook", "twitter", "facebook"},
		ScheduledTime: "2024-03-15T09:30",
		TimeZone:      "America/New_York",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, []string{"facebook", "twitter"}, post.Platforms)
	assert.Equal(t, time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC), post.ScheduledFor)
	assert.Equal(t, models.RepeatNone, post.Repeat)
	assert.NotZero(t, post.ID)

	stored, _ := repo.GetByID(context.Background(), post.ID)
	assert.Equal(t, "America/New_York", stored.TimeZone)
}

func TestCreatePostDraftDefaults(t *testing.T) {
	svc := newTestPostService(newMemoryPostRepo())

	post, err := svc.CreatePost(context.Background(), 1, &transfer.PostCreation{
		Content: "idea",
		Draft:   true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Equal(t, fixedNow, post.ScheduledFor)
	assert.Equal(t, "UTC", post.TimeZone)
	assert.Empty(t, post.Platforms)
}

func TestCreatePostValidation(t *testing.T) {
	svc := newTestPostService(newMemoryPostRepo())
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", ScheduledTime: "2024-03-15T09:30"}, nil)
	assert.ErrorIs(t, err, ErrNoPlatforms)

	_, err = svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", Platforms: []string{"myspace"}, ScheduledTime: "2024-03-15T09:30"}, nil)
	assert.ErrorIs(t, err, ErrInvalidPlatform)

	_, err = svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "  ", Platforms: []string{"twitter"}}, nil)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", Platforms: []string{"twitter"}, Repeat: "hourly", ScheduledTime: "2024-03-15T09:30"}, nil)
	assert.ErrorIs(t, err, ErrInvalidRepeat)

	_, err = svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", Platforms: []string{"twitter"}}, nil)
	assert.ErrorIs(t, err, ErrInvalidTime, "scheduled posts need a time")

	_, err = svc.CreatePost(ctx, 1, &transfer.PostCreation{Content: "x", Platforms: []string{"twitter"}, ScheduledTime: "tomorrow"}, nil)
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = svc.CreatePost(ctx, 0, &transfer.PostCreation{Content: "x"}, nil)
	assert.Error(t, err)
}

func TestSchedulePostFromDraft(t *testing.T) {
	repo := newMemoryPostRepo()
	svc := newTestPostService(repo)
	id := repo.put(models.Post{UserID: 1, Status: models.PostStatusDraft, Platforms: []string{"linkedin"}, TimeZone: "Europe/Berlin"})

	post, err := svc.Schedule(context.Background(), id, 1, &transfer.PostReschedule{ScheduledTime: "2024-07-01T09:00"})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, time.Date(2024, 7, 1, 7, 0, 0, 0, time.UTC), post.ScheduledFor)

	stored, _ := repo.GetByID(context.Background(), id)
	assert.Equal(t, models.PostStatusScheduled, stored.Status)
	assert.Equal(t, post.ScheduledFor, stored.ScheduledFor)

	_, err = svc.Schedule(context.Background(), id, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition, "already scheduled")
}

func TestScheduleRequiresPlatforms(t *testing.T) {
	repo := newMemoryPostRepo()
	svc := newTestPostService(repo)
	id := repo.put(models.Post{UserID: 1, Status: models.PostStatusDraft})

	_, err := svc.Schedule(context.Background(), id, 1, nil)
	assert.ErrorIs(t, err, ErrNoPlatforms)
}

func TestResubmitFailedPost(t *testing.T) {
	repo := newMemoryPostRepo()
	svc := newTestPostService(repo)
	id := repo.put(models.Post{UserID: 1, Status: models.PostStatusFailed, Platforms: []string{"twitter"}, LastError: "twitter: rate limited"})

	post, err := svc.Resubmit(context.Background(), id, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)

	stored, _ := repo.GetByID(context.Background(), id)
	assert.Equal(t, models.PostStatusScheduled, stored.Status)
	assert.Empty(t, stored.LastError)

	published := repo.put(models.Post{UserID: 1, Status: models.PostStatusPublished, Platforms: []string{"twitter"}})
	_, err = svc.Resubmit(context.Background(), published, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUnschedule(t *testing.T) {
	repo := newMemoryPostRepo()
	svc := newTestPostService(repo)
	id := repo.put(models.Post{UserID: 1, Status: models.PostStatusScheduled, Platforms: []string{"twitter"}})

	post, err := svc.Unschedule(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, post.Status)

	_, err = svc.Unschedule(context.Background(), id, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckPublishable(t *testing.T) {
	repo := newMemoryPostRepo()
	svc := newTestPostService(repo)
	ctx := context.Background()

	draft := repo.put(models.Post{UserID: 1, Status: models.PostStatusDraft, Platforms: []string{"facebook"}})
	scheduled := repo.put(models.Post{UserID: 1, Status: models.PostStatusScheduled, Platforms: []string{"facebook"}})
	published := repo.put(models.Post{UserID: 1, Status: models.PostStatusPublished, Platforms: []string{"facebook"}})
	empty := repo.put(models.Post{UserID: 1, Status: models.PostStatusDraft})

	_, err := svc.CheckPublishable(ctx, draft, 1)
	assert.NoError(t, err)
	_, err = svc.CheckPublishable(ctx, scheduled, 1)
	assert.NoError(t, err)
	_, err = svc.CheckPublishable(ctx, published, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.CheckPublishable(ctx, empty, 1)
	assert.ErrorIs(t, err, ErrNoPlatforms)
	_, err = svc.CheckPublishable(ctx, draft, 2)
	assert.ErrorIs(t, err, ErrPostNotFound, "other users' posts are invisible")
}

func TestRemovePost(t *testing.T) {
	repo := newMemoryPostRepo()
	svc := newTestPostService(repo)
	ctx := context.Background()

	id := repo.put(models.Post{UserID: 1, Status: models.PostStatusScheduled})
	busy := repo.put(models.Post{UserID: 1, Status: models.PostStatusPublishing})

	require.NoError(t, svc.Remove(ctx, 1, id))
	_, err := svc.PostInfo(ctx, id, 1)
	assert.ErrorIs(t, err, ErrPostNotFound)

	assert.ErrorIs(t, svc.Remove(ctx, 1, busy), ErrInvalidTransition)
}

type memoryHistoryRepo struct {
	rows []*models.PostingHistory
}

func (r *memoryHistoryRepo) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	r.rows = append(r.rows, ph)
	return int64(len(r.rows)), nil
}

func (r *memoryHistoryRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	var out []*models.PostingHistory
	for _, ph := range r.rows {
		if ph.PostID == postID {
			out = append(out, ph)
		}
	}
	return out, nil
}

func (r *memoryHistoryRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.PostingHistory, error) {
	var out []*models.PostingHistory
	for _, ph := range r.rows {
		if ph.UserID == userID {
			out = append(out, ph)
		}
	}
	return out, nil
}

func TestHistoryIsScopedToOwner(t *testing.T) {
	repo := newMemoryPostRepo()
	mine := repo.put(models.Post{UserID: 1, Status: models.PostStatusPublished})
	theirs := repo.put(models.Post{UserID: 2, Status: models.PostStatusPublished})

	history := &memoryHistoryRepo{}
	history.Create(context.Background(), &models.PostingHistory{UserID: 1, PostID: mine, Platform: "facebook", Success: true})
	history.Create(context.Background(), &models.PostingHistory{UserID: 2, PostID: theirs, Platform: "twitter"})

	s := newTestPostService(repo)
	s.ph = history

	rows, err := s.UserHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine, rows[0].PostID)

	rows, err = s.History(context.Background(), mine, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = s.History(context.Background(), theirs, 1)
	assert.ErrorIs(t, err, ErrPostNotFound)
}
