package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	maxRetry    = 3
	taskTimeout = 10 * time.Minute
)

func NewPublishNowTask(payload PublishNowPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishNow, taskPayload), nil
}

// EnqueuePublishNow queues an immediate publish. The task id is derived from
// the post so a double click does not queue the same post twice.
func EnqueuePublishNow(ctx context.Context, client Enqueuer, payload PublishNowPayload) (string, error) {
	task, err := NewPublishNowTask(payload)
	if err != nil {
		return "", err
	}

	info, err := client.EnqueueContext(ctx, task,
		asynq.TaskID(fmt.Sprintf("publish-now-%d", payload.PostID)),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
		asynq.Retention(time.Minute),
	)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	slog.Info("task enqueued", "type", TaskTypePublishNow, "post_id", payload.PostID, "task_id", info.ID)
	return info.ID, nil
}
