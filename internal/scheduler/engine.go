package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/pkg/utils"
)

const (
	DefaultInterval = time.Minute
	MaxInterval     = 5 * time.Minute
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrNotPublishable    = errors.New("post cannot be published from its current status")
	ErrAlreadyPublishing = errors.New("post is already being published")
)

type Options struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Now         func() time.Time
	History     HistoryRecorder
	Events      OutcomeSink
	Metrics     Recorder
	Lease       Locker
}

// Status is a snapshot of the engine. NextCheckAt is nil while a cycle is in
// progress, since the next instant is only known once it ends.
type Status struct {
	IsRunning   bool       `json:"is_running"`
	Checking    bool       `json:"checking"`
	NextCheckAt *time.Time `json:"next_check_at"`
}

// CycleReport describes one scan cycle.
type CycleReport struct {
	StartedAt    time.Time               `json:"started_at"`
	Users        int                     `json:"users"`
	Due          int                     `json:"due"`
	Outcomes     []models.PublishOutcome `json:"outcomes"`
	Skipped      bool                    `json:"skipped,omitempty"`
	Error        string                  `json:"error,omitempty"`
	NextInterval time.Duration           `json:"next_interval"`
}

// Engine finds scheduled posts whose time has come and publishes them.
// Timer cycles, manual checks and publish-now requests never overlap.
type Engine struct {
	store     PostStore
	accounts  AccountResolver
	publisher Publisher
	users     UserResolver
	opts      Options

	mu          sync.Mutex
	running     bool
	gen         uint64
	timer       *time.Timer
	nextCheckAt time.Time
	checking    bool

	cycleMu sync.Mutex
}

func New(store PostStore, accounts AccountResolver, publisher Publisher, users UserResolver, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = MaxInterval
	}
	if opts.MaxInterval < opts.Interval {
		opts.MaxInterval = opts.Interval
	}
	if opts.Now == nil {
		opts.Now = utils.NowInstant
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}

	return &Engine{
		store:     store,
		accounts:  accounts,
		publisher: publisher,
		users:     users,
		opts:      opts,
	}
}

// Start begins scanning. The first cycle runs right away. Calling Start on a
// running engine does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.gen++
	e.armLocked(0, e.gen)
	slog.Info("scheduler started", "interval", e.opts.Interval, "max_interval", e.opts.MaxInterval)
}

// Stop cancels the timer. No new cycle starts after Stop returns; a cycle
// already under way is allowed to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.nextCheckAt = time.Time{}
	slog.Info("scheduler stopped")
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{IsRunning: e.running, Checking: e.checking}
	if e.running && !e.checking && !e.nextCheckAt.IsZero() {
		next := e.nextCheckAt
		s.NextCheckAt = &next
	}
	return s
}

// ManualCheck runs a scan cycle now and, when the engine is running, restarts
// the timer from the end of that cycle.
func (e *Engine) ManualCheck(ctx context.Context) CycleReport {
	e.cycleMu.Lock()
	e.setChecking(true)
	report := e.runCycle(ctx)
	e.cycleMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.checking = false
	if e.running {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.gen++
		e.armLocked(report.NextInterval, e.gen)
	}
	return report
}

// PublishNow publishes a draft or scheduled post immediately, ignoring its
// scheduled time.
func (e *Engine) PublishNow(ctx context.Context, postID int64) (*models.PublishOutcome, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	post, err := e.store.GetByID(ctx, postID)
	if err != nil {
		slog.Error("publish now: could not load post", "post_id", postID, "error", err)
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if !models.CanTransition(post.Status, models.PostStatusPublishing) {
		return nil, ErrNotPublishable
	}

	outcome, err := e.publishOne(ctx, post, post.Status)
	if err != nil {
		return nil, err
	}
	if outcome.Skipped {
		return &outcome, ErrAlreadyPublishing
	}
	return &outcome, nil
}

func (e *Engine) armLocked(after time.Duration, gen uint64) {
	e.nextCheckAt = e.opts.Now().Add(after)
	e.timer = time.AfterFunc(after, func() { e.tick(gen) })
}

func (e *Engine) setChecking(checking bool) {
	e.mu.Lock()
	e.checking = checking
	e.mu.Unlock()
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && e.gen == gen
}

func (e *Engine) tick(gen uint64) {
	e.cycleMu.Lock()
	if !e.current(gen) {
		e.cycleMu.Unlock()
		return
	}
	e.setChecking(true)
	report := e.runCycle(context.Background())
	e.cycleMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.checking = false
	if e.running && e.gen == gen {
		e.armLocked(report.NextInterval, gen)
	}
}

// runCycle is one scan. Store read failures end it early; the caller still
// re-arms the timer with the returned interval.
func (e *Engine) runCycle(ctx context.Context) (report CycleReport) {
	report.StartedAt = e.opts.Now()
	report.NextInterval = e.opts.Interval
	defer func() {
		e.opts.Metrics.CycleCompleted(e.opts.Now().Sub(report.StartedAt), report.Due, report.Error != "")
		e.opts.Metrics.NextCheckIn(report.NextInterval)
	}()

	if e.opts.Lease != nil {
		unlock, ok, err := e.opts.Lease.TryLock(ctx)
		if err != nil {
			slog.Warn("scheduler lease unavailable, skipping cycle", "error", err)
			report.Skipped = true
			report.Error = err.Error()
			return report
		}
		if !ok {
			slog.Debug("another instance holds the scheduler lease")
			report.Skipped = true
			return report
		}
		defer unlock()
	}

	users, err := e.users.CurrentUsers(ctx)
	if err != nil {
		slog.Error("scheduler could not resolve users", "error", err)
		report.Error = err.Error()
		return report
	}
	report.Users = len(users)
	if len(users) == 0 {
		return report
	}

	for _, userID := range users {
		posts, err := e.store.ListByStatus(ctx, userID, models.PostStatusScheduled)
		if err != nil {
			slog.Error("scheduler could not list scheduled posts, abandoning cycle", "user_id", userID, "error", err)
			report.Error = err.Error()
			return report
		}

		now := e.opts.Now()
		for _, post := range posts {
			if !utils.IsDueAt(post.ScheduledFor, now) {
				continue
			}
			report.Due++

			outcome, err := e.publishOne(ctx, post, models.PostStatusScheduled)
			if err != nil {
				slog.Error("scheduler could not publish post", "post_id", post.ID, "error", err)
				continue
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}

	report.NextInterval = e.nextInterval(ctx, users)
	return report
}

// nextInterval backs off to MaxInterval when nothing is due within it.
func (e *Engine) nextInterval(ctx context.Context, users []int64) time.Duration {
	var instants []time.Time
	for _, userID := range users {
		posts, err := e.store.ListByStatus(ctx, userID, models.PostStatusScheduled)
		if err != nil {
			slog.Warn("scheduler could not compute next interval", "user_id", userID, "error", err)
			return e.opts.Interval
		}
		for _, p := range posts {
			instants = append(instants, p.ScheduledFor)
		}
	}

	now := e.opts.Now()
	soonest, ok := utils.SoonestFuture(instants, now)
	if !ok {
		return e.opts.Interval
	}
	if until := soonest.Sub(now); until > e.opts.MaxInterval {
		return e.opts.MaxInterval
	}
	return e.opts.Interval
}
