package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/platforms"
	"github.com/polaritylab/crosspost/internal/repository"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrNoTargets         = errors.New("post has no target platforms")
	ErrPublishInProgress = errors.New("post is already being published")
	ErrRecordResult      = errors.New("failed to record publish result")
)

// Statuses a post may be published from by hand. The scheduled path claims
// from scheduled only, so a post another run already finished is left alone.
var manualPublishFrom = []models.PostStatus{
	models.PostStatusDraft,
	models.PostStatusScheduled,
	models.PostStatusFailed,
	models.PostStatusPublished,
}

var duePublishFrom = []models.PostStatus{models.PostStatusScheduled}

type PublishResult struct {
	AllSucceeded bool     `json:"all_succeeded"`
	AnySucceeded bool     `json:"any_succeeded"`
	Errors       []string `json:"errors"`
}

type PublisherService interface {
	// PublishPost publishes a post to each of its target platforms in order.
	// Target failures are recorded and reported in the result; only a missing
	// post, a post without targets or a publish already running fail the call.
	PublishPost(ctx context.Context, postID string) (*PublishResult, error)
	// PublishDue publishes a scheduled post, or reclaims one abandoned in
	// publishing. Targets published by an earlier attempt are not sent again.
	PublishDue(ctx context.Context, postID string) (*PublishResult, error)
}

type publisherService struct {
	posts         repository.PostRepository
	targets       repository.PostPlatformRepository
	conns         repository.ConnectionRepository
	media         repository.MediaRepository
	tokens        TokenService
	registry      *platforms.Registry
	targetTimeout time.Duration
	staleAfter    time.Duration
	now           func() time.Time
}

func NewPublisherService(
	cfg config.Publish,
	posts repository.PostRepository,
	targets repository.PostPlatformRepository,
	conns repository.ConnectionRepository,
	media repository.MediaRepository,
	tokens TokenService,
	registry *platforms.Registry) PublisherService {
	return &publisherService{
		posts:         posts,
		targets:       targets,
		conns:         conns,
		media:         media,
		tokens:        tokens,
		registry:      registry,
		targetTimeout: cfg.TargetTimeout,
		staleAfter:    cfg.StaleAfter,
		now:           time.Now,
	}
}

func (s *publisherService) PublishPost(ctx context.Context, postID string) (*PublishResult, error) {
	return s.publish(ctx, postID, manualPublishFrom, false)
}

func (s *publisherService) PublishDue(ctx context.Context, postID string) (*PublishResult, error) {
	return s.publish(ctx, postID, duePublishFrom, true)
}

func (s *publisherService) publish(ctx context.Context, postID string, from []models.PostStatus, skipPublished bool) (*PublishResult, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %s: %w", postID, err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}

	targets, err := s.targets.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets of post %s: %w", postID, err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTargets, postID)
	}

	media, err := s.media.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load media of post %s: %w", postID, err)
	}

	claimed, err := s.posts.ClaimForPublishing(ctx, postID, from, s.now().Add(-s.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("failed to claim post %s: %w", postID, err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s", ErrPublishInProgress, postID)
	}

	result := &PublishResult{AllSucceeded: true, Errors: []string{}}

	for _, target := range targets {
		if skipPublished && target.Status == models.TargetStatusPublished {
			result.AnySucceeded = true
			continue
		}

		if err := s.publishTarget(ctx, post, target, media); err != nil {
			result.AllSucceeded = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", target.Platform, err.Error()))
			slog.Error("failed to publish target", "post_id", postID, "platform", target.Platform, "error", err)

			if markErr := s.targets.MarkFailed(ctx, target.ID, err.Error()); markErr != nil {
				slog.Error("failed to record target failure", "post_id", postID, "platform", target.Platform, "error", markErr)
			}
			continue
		}
		result.AnySucceeded = true
	}

	status := models.PostStatusFailed
	var publishedAt *time.Time
	if result.AnySucceeded {
		status = models.PostStatusPublished
		at := s.now()
		publishedAt = &at
	}

	var lastError *string
	if len(result.Errors) > 0 {
		joined := strings.Join(result.Errors, "; ")
		lastError = &joined
	}

	if err := s.posts.FinishPublishing(ctx, postID, status, publishedAt, lastError); err != nil {
		slog.Error("failed to record post result", "post_id", postID, "status", status, "error", err)
		return result, fmt.Errorf("%w: post %s: %w", ErrRecordResult, postID, err)
	}

	return result, nil
}

// publishTarget sends the post to one platform. Only the platform calls run
// under the per-target timeout; target rows are written with ctx.
func (s *publisherService) publishTarget(ctx context.Context, post *models.Post, target *models.PostPlatform, media []*models.Media) error {
	if err := s.targets.MarkPublishing(ctx, target.ID); err != nil {
		return err
	}

	conn, res, err := s.send(ctx, post, target, media)
	if err != nil {
		return err
	}

	// The post is live at this point, so a failed write is logged only.
	if err := s.targets.MarkPublished(ctx, target.ID, conn.ID, res.NativePostID, res.NativePostURL, s.now()); err != nil {
		slog.Error("failed to record published target", "post_id", post.ID, "platform", target.Platform,
			"native_post_id", res.NativePostID, "error", err)
	}
	return nil
}

func (s *publisherService) send(ctx context.Context, post *models.Post, target *models.PostPlatform, media []*models.Media) (*models.PlatformConnection, *platforms.PublishResult, error) {
	if s.targetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.targetTimeout)
		defer cancel()
	}

	conn, err := s.conns.GetByUserAndPlatform(ctx, post.UserID, target.Platform)
	if err != nil {
		return nil, nil, err
	}
	if conn == nil {
		return nil, nil, fmt.Errorf("no %s connection found", target.Platform)
	}

	accessToken, err := s.tokens.GetValidToken(ctx, conn.ID)
	if err != nil {
		return nil, nil, err
	}

	adapter, err := s.registry.Get(target.Platform)
	if err != nil {
		return nil, nil, err
	}

	req := platforms.PublishRequest{
		Content:           post.Content,
		AccessToken:       accessToken,
		PlatformAccountID: conn.PlatformAccountID,
	}
	if post.Title != nil {
		req.Title = *post.Title
	}
	if target.Target != nil {
		req.Target = *target.Target
	}

	uploader, canUpload := adapter.(platforms.MediaUploader)
	for _, m := range media {
		if !canUpload {
			req.MediaURLs = append(req.MediaURLs, m.URL)
			continue
		}

		mimeType := m.MimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		mediaID, err := uploader.UploadMedia(ctx, platforms.MediaUploadRequest{
			AccessToken:       accessToken,
			PlatformAccountID: conn.PlatformAccountID,
			URL:               m.URL,
			MimeType:          mimeType,
		})
		if err != nil {
			return nil, nil, err
		}
		req.MediaIDs = append(req.MediaIDs, mediaID)
	}

	res, err := adapter.Publish(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return conn, res, nil
}
