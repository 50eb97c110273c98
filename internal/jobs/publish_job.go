package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/notify"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/internal/service"
	"github.com/polaritylab/crosspost/internal/transfer"
)

// PublishJob drives scheduled posts through the publisher and owns the retry
// bookkeeping for posts whose publish failed outright.
type PublishJob struct {
	cfg config.Publish
	pr  repository.PostRepository
	ps  service.PublisherService
	n   notify.Notifier
	now func() time.Time
}

func NewPublishJob(
	cfg config.Publish,
	pr repository.PostRepository,
	ps service.PublisherService,
	n notify.Notifier) *PublishJob {
	return &PublishJob{
		cfg: cfg,
		pr:  pr,
		ps:  ps,
		n:   n,
		now: time.Now,
	}
}

func (j *PublishJob) PublishDuePosts() {
	sweep, err := j.Run(context.Background())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if sweep.Processed > 0 {
		slog.Info("publish sweep finished", "processed", sweep.Processed)
	}
}

// Run publishes every due post, oldest first, one at a time. Posts stuck in
// publishing for longer than the stale window are picked up again.
func (j *PublishJob) Run(ctx context.Context) (*transfer.PublishSweep, error) {
	now := j.now()
	posts, err := j.pr.ListDue(ctx, now, now.Add(-j.cfg.StaleAfter), j.cfg.MaxRetries, j.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("error listing due posts: %w", err)
	}

	sweep := &transfer.PublishSweep{
		Processed: len(posts),
		Results:   make([]*transfer.PublishOutcome, 0, len(posts)),
	}
	for _, post := range posts {
		sweep.Results = append(sweep.Results, j.PublishScheduled(ctx, post))
	}
	return sweep, nil
}

func (j *PublishJob) PublishScheduled(ctx context.Context, post *models.Post) *transfer.PublishOutcome {
	outcome := &transfer.PublishOutcome{PostID: post.ID}

	result, err := j.ps.PublishDue(ctx, post.ID)
	if err == nil {
		outcome.Success = result.AllSucceeded
		if len(result.Errors) > 0 {
			outcome.Errors = result.Errors
		}
		if !result.AnySucceeded {
			j.announce(ctx, post, strings.Join(result.Errors, "; "))
		}
		return outcome
	}

	if errors.Is(err, service.ErrPublishInProgress) {
		slog.Info("post was claimed by another run", "post_id", post.ID)
		outcome.Skipped = true
		return outcome
	}

	slog.Error("scheduled publish failed", "post_id", post.ID, "error", err)
	outcome.Errors = []string{err.Error()}

	retries := post.RetryCount + 1
	status := models.PostStatusScheduled
	if retries >= j.cfg.MaxRetries {
		status = models.PostStatusFailed
	}

	if err := j.pr.RecordRetry(ctx, post.ID, retries, status, err.Error()); err != nil {
		slog.Error("error recording retry", "post_id", post.ID, "error", err)
		return outcome
	}

	if status == models.PostStatusFailed {
		j.announce(ctx, post, err.Error())
	}
	return outcome
}

func (j *PublishJob) announce(ctx context.Context, post *models.Post, reason string) {
	msg := fmt.Sprintf("Post %s failed to publish: %s", post.ID, reason)
	if err := j.n.Notify(ctx, msg); err != nil {
		slog.Warn("error sending failure notification", "post_id", post.ID, "error", err)
	}
}
