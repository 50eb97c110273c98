package queue

import (
	"time"

	"github.com/hibiken/asynq"
	job "github.com/polaritylab/crosspost/internal/jobs"
	"github.com/polaritylab/crosspost/internal/repository"
)

const TaskTypeSchedulePost = "schedule:post"

type SchedulePostPayload struct {
	PostID       string    `json:"post_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// Queue handles scheduled post tasks delivered by asynq.
type Queue struct {
	pr  repository.PostRepository
	pj  *job.PublishJob
	now func() time.Time
}

func NewQueue(pr repository.PostRepository, pj *job.PublishJob) *Queue {
	return &Queue{
		pr:  pr,
		pj:  pj,
		now: time.Now,
	}
}

func (q *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeSchedulePost, q.HandleSchedulePostTask)
}
