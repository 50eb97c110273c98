package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/polaritylab/crosspost/internal/models"
)

// HandleSchedulePostTask publishes the post if it is still scheduled for the
// time the task was created with. Edited, unscheduled and deleted posts are
// dropped; failures are tracked on the post, not by asynq retries.
func (q *Queue) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("scheduled post no longer exists", "post_id", payload.PostID)
		return nil
	}

	if post.Status != models.PostStatusScheduled || post.ScheduledFor == nil {
		return nil
	}
	if post.ScheduledFor.Unix() != payload.ScheduledFor.Unix() || post.ScheduledFor.After(q.now()) {
		return nil
	}

	outcome := q.pj.PublishScheduled(ctx, post)
	slog.Info("scheduled post processed", "post_id", post.ID, "success", outcome.Success)
	return nil
}
