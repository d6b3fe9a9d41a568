package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialdeck/internal/models"
)

// PostPublisher is the engine entry point the worker hands tasks to.
type PostPublisher interface {
	PublishNow(ctx context.Context, postID int64) (*models.PublishOutcome, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Queue struct {
	publisher PostPublisher
}

func NewQueue(publisher PostPublisher) *Queue {
	return &Queue{
		publisher: publisher,
	}
}

const TaskTypePublishNow = "post:publish_now"

type PublishNowPayload struct {
	PostID int64 `json:"post_id"`
	UserID int64 `json:"user_id"`
}
