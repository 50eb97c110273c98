package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules a post for delivery at its scheduled time.
type Enqueuer interface {
	EnqueuePost(payload SchedulePostPayload) error
}

type asynqEnqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) Enqueuer {
	return &asynqEnqueuer{client: client}
}

func (e *asynqEnqueuer) EnqueuePost(payload SchedulePostPayload) error {
	return EnqueuePost(e.client, payload)
}

// TaskID identifies one schedule of a post, so enqueueing the same schedule
// twice is a no-op while a rescheduled post gets a fresh task.
func TaskID(payload SchedulePostPayload) string {
	return fmt.Sprintf("post:%s:%d", payload.PostID, payload.ScheduledFor.Unix())
}

func EnqueuePost(asynqClient *asynq.Client, payload SchedulePostPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSchedulePost, taskPayload)

	_, err = asynqClient.Enqueue(task,
		asynq.ProcessAt(payload.ScheduledFor),
		asynq.TaskID(TaskID(payload)),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("task scheduled", "post_id", payload.PostID, "process_at", payload.ScheduledFor)
	return nil
}
