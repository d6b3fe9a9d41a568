package scheduler

import (
	"context"
	"time"

	"github.com/maheshrc27/socialdeck/internal/models"
)

// PostStore is the slice of the post repository the engine reads and writes.
type PostStore interface {
	ListByStatus(ctx context.Context, userID int64, status models.PostStatus) ([]*models.Post, error)
	UpdateStatus(ctx context.Context, postID int64, status models.PostStatus, fields models.StatusFields) error
	ClaimForPublishing(ctx context.Context, postID int64, from models.PostStatus) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
}

type AccountResolver interface {
	ActiveAccountsForUser(ctx context.Context, userID int64, platforms []string) ([]*models.SocialAccount, error)
}

// Publisher sends a post to one platform. It reports failures in the result
// instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, platform string, account *models.SocialAccount, content string, media []models.MediaRef) models.PublishResult
}

type HistoryRecorder interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
}

type OutcomeSink interface {
	Emit(ctx context.Context, outcome models.PublishOutcome) error
}

type Recorder interface {
	CycleCompleted(duration time.Duration, due int, failed bool)
	PostFinished(status models.PostStatus)
	PlatformResult(platform string, success bool)
	NextCheckIn(interval time.Duration)
}

// Locker grants one engine instance at a time the right to scan.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

type nopRecorder struct{}

func (nopRecorder) CycleCompleted(time.Duration, int, bool) {}
func (nopRecorder) PostFinished(models.PostStatus)          {}
func (nopRecorder) PlatformResult(string, bool)             {}
func (nopRecorder) NextCheckIn(time.Duration)               {}
