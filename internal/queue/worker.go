package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialdeck/internal/scheduler"
)

func (q *Queue) HandlePublishNowTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishNowPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TaskTypePublishNow, err, asynq.SkipRetry)
	}
	if payload.PostID <= 0 {
		return fmt.Errorf("invalid post id %d: %w", payload.PostID, asynq.SkipRetry)
	}

	outcome, err := q.publisher.PublishNow(ctx, payload.PostID)
	switch {
	case errors.Is(err, scheduler.ErrAlreadyPublishing):
		slog.Info("post already being published", "post_id", payload.PostID)
		return nil
	case errors.Is(err, scheduler.ErrPostNotFound), errors.Is(err, scheduler.ErrNotPublishable):
		slog.Warn("publish now dropped", "post_id", payload.PostID, "error", err)
		return fmt.Errorf("post %d: %v: %w", payload.PostID, err, asynq.SkipRetry)
	case err != nil:
		return err
	}

	slog.Info("published on request", "post_id", payload.PostID, "user_id", payload.UserID, "status", outcome.Status)
	return nil
}

// Mux routes every task type this package defines.
func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishNow, q.HandlePublishNowTask)
	return mux
}
