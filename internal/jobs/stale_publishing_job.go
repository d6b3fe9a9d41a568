package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialdeck/pkg/utils"
	"github.com/robfig/cron/v3"
)

const (
	SweepSchedule = "@every 10m"
	// staleAfter is well past the longest a publish can take: platform calls
	// time out after two minutes and Instagram polls for five.
	staleAfter  = 30 * time.Minute
	StaleReason = "publishing did not finish, resubmit the post to try again"
)

type StaleStore interface {
	FailStalePublishing(ctx context.Context, before time.Time, reason string) (int64, error)
}

// StalePublishingJob releases posts left in publishing when the final status
// write was lost, for example because the process died mid-publish.
type StalePublishingJob struct {
	store StaleStore
	now   func() time.Time
}

func NewStalePublishingJob(store StaleStore) *StalePublishingJob {
	return &StalePublishingJob{store: store, now: utils.NowInstant}
}

func (j *StalePublishingJob) Register(cr *cron.Cron) (cron.EntryID, error) {
	return cr.AddFunc(SweepSchedule, j.Sweep)
}

func (j *StalePublishingJob) Sweep() {
	j.Run(context.Background())
}

func (j *StalePublishingJob) Run(ctx context.Context) int64 {
	n, err := j.store.FailStalePublishing(ctx, j.now().Add(-staleAfter), StaleReason)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}
	if n > 0 {
		slog.Warn("marked stuck posts as failed", "count", n)
	}
	return n
}
