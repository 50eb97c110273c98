package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/internal/transfer"
)

const (
	maxTitleLength   = 500
	maxContentLength = 10000
)

var ErrInvalidInput = errors.New("invalid input")

type PostService interface {
	Create(ctx context.Context, userID string, pc *transfer.PostCreation) (*transfer.PostDetail, error)
	Get(ctx context.Context, userID, postID string) (*transfer.PostDetail, error)
	List(ctx context.Context, userID string, filter models.PostFilter) ([]*transfer.PostDetail, error)
	Update(ctx context.Context, userID, postID string, pu *transfer.PostUpdate) (*transfer.PostDetail, error)
	Remove(ctx context.Context, userID, postID string) error
	Stats(ctx context.Context, userID string) (*transfer.PostStats, error)
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	pp repository.PostPlatformRepository
	mr repository.MediaRepository
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pp repository.PostPlatformRepository,
	mr repository.MediaRepository) PostService {
	return &postService{
		db: db,
		pr: pr,
		pp: pp,
		mr: mr,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// parsePlatforms validates the selection and drops duplicates, keeping the
// order in which platforms were picked.
func parsePlatforms(raw []string) ([]models.Platform, error) {
	if len(raw) == 0 {
		return nil, invalid("select at least one platform")
	}

	seen := make(map[models.Platform]bool, len(raw))
	var out []models.Platform
	for _, r := range raw {
		p, err := models.ParsePlatform(strings.ToLower(strings.TrimSpace(r)))
		if err != nil {
			return nil, invalid("%s", err.Error())
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

func validateText(title, content *string) error {
	if content != nil {
		if strings.TrimSpace(*content) == "" {
			return invalid("content is required")
		}
		if utf8.RuneCountInString(*content) > maxContentLength {
			return invalid("content exceeds %d characters", maxContentLength)
		}
	}
	if title != nil && utf8.RuneCountInString(*title) > maxTitleLength {
		return invalid("title exceeds %d characters", maxTitleLength)
	}
	return nil
}

func targetFor(p models.Platform, subreddit string) *string {
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	if p != models.PlatformReddit || subreddit == "" {
		return nil
	}
	return &subreddit
}

func (s *postService) Create(ctx context.Context, userID string, pc *transfer.PostCreation) (*transfer.PostDetail, error) {
	if pc == nil {
		return nil, invalid("post creation data is nil")
	}
	if err := validateText(&pc.Title, &pc.Content); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	selected, err := parsePlatforms(pc.Platforms)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	post := models.Post{
		UserID:  userID,
		Content: pc.Content,
		Status:  models.PostStatusDraft,
	}
	if pc.Title != "" {
		post.Title = &pc.Title
	}
	if pc.ScheduledFor != nil {
		at := pc.ScheduledFor.UTC()
		post.ScheduledFor = &at
		post.Status = models.PostStatusScheduled
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	for i, p := range selected {
		_, err := s.pp.Create(ctx, tx, &models.PostPlatform{
			PostID:   postID,
			Platform: p,
			Position: i,
			Target:   targetFor(p, pc.Subreddit),
		})
		if err != nil {
			return nil, fmt.Errorf("error saving platform %s: %w", p, err)
		}
	}

	for _, mediaID := range pc.MediaIDs {
		if err := s.mr.AttachToPost(ctx, tx, mediaID, userID, postID); err != nil {
			return nil, fmt.Errorf("error attaching media %s: %w", mediaID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.Get(ctx, userID, postID)
}

// owned loads a post of the user. Posts of other users read as missing.
func (s *postService) owned(ctx context.Context, userID, postID string) (*models.Post, error) {
	if postID == "" {
		return nil, invalid("post id is not valid")
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info: %w", err)
	}
	if post == nil || post.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, userID, postID string) (*transfer.PostDetail, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	targets, err := s.pp.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post platforms: %w", err)
	}

	media, err := s.mr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post media: %w", err)
	}

	return &transfer.PostDetail{Post: post, Platforms: targets, Media: media}, nil
}

func (s *postService) List(ctx context.Context, userID string, filter models.PostFilter) ([]*transfer.PostDetail, error) {
	posts, err := s.pr.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	targets, err := s.pp.ListByPostIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error listing post platforms: %w", err)
	}

	details := make([]*transfer.PostDetail, 0, len(posts))
	for _, p := range posts {
		pps := targets[p.ID]
		if pps == nil {
			pps = []*models.PostPlatform{}
		}
		details = append(details, &transfer.PostDetail{Post: p, Platforms: pps})
	}
	return details, nil
}

func (s *postService) Update(ctx context.Context, userID, postID string, pu *transfer.PostUpdate) (*transfer.PostDetail, error) {
	if pu == nil {
		return nil, invalid("post update data is nil")
	}
	if err := validateText(pu.Title, pu.Content); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if pu.Unschedule && pu.ScheduledFor != nil {
		return nil, invalid("cannot schedule and unschedule at once")
	}

	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPublishing {
		return nil, fmt.Errorf("%w: %s", ErrPublishInProgress, postID)
	}

	if pu.Title != nil {
		if *pu.Title == "" {
			post.Title = nil
		} else {
			post.Title = pu.Title
		}
	}
	if pu.Content != nil {
		post.Content = *pu.Content
	}
	if pu.ScheduledFor != nil {
		at := pu.ScheduledFor.UTC()
		post.ScheduledFor = &at
		post.Status = models.PostStatusScheduled
		post.RetryCount = 0
		post.LastError = nil
	}
	if pu.Unschedule {
		post.ScheduledFor = nil
		post.Status = models.PostStatusDraft
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.pr.Update(ctx, tx, post); err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}

	if pu.Platforms != nil {
		if err := s.syncPlatforms(ctx, tx, post.ID, pu); err != nil {
			return nil, err
		}
	} else if pu.Subreddit != nil {
		if err := s.pp.SetTarget(ctx, tx, post.ID, models.PlatformReddit, targetFor(models.PlatformReddit, *pu.Subreddit)); err != nil {
			return nil, fmt.Errorf("error updating subreddit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.Get(ctx, userID, postID)
}

// syncPlatforms keeps targets that stay selected, deletes deselected ones and
// appends new ones after the existing positions.
func (s *postService) syncPlatforms(ctx context.Context, tx *sql.Tx, postID string, pu *transfer.PostUpdate) error {
	selected, err := parsePlatforms(pu.Platforms)
	if err != nil {
		return err
	}

	existing, err := s.pp.ListByPostID(ctx, postID)
	if err != nil {
		return fmt.Errorf("error getting post platforms: %w", err)
	}

	want := make(map[models.Platform]bool, len(selected))
	for _, p := range selected {
		want[p] = true
	}

	have := make(map[models.Platform]bool, len(existing))
	next := 0
	for _, pp := range existing {
		have[pp.Platform] = true
		next = max(next, pp.Position+1)
		if want[pp.Platform] {
			continue
		}
		if err := s.pp.RemoveByPlatform(ctx, tx, postID, pp.Platform); err != nil {
			return fmt.Errorf("error removing platform %s: %w", pp.Platform, err)
		}
	}

	subreddit := ""
	if pu.Subreddit != nil {
		subreddit = *pu.Subreddit
	}
	for _, p := range selected {
		if have[p] {
			if p == models.PlatformReddit && pu.Subreddit != nil {
				if err := s.pp.SetTarget(ctx, tx, postID, p, targetFor(p, subreddit)); err != nil {
					return fmt.Errorf("error updating platform %s: %w", p, err)
				}
			}
			continue
		}
		_, err := s.pp.Create(ctx, tx, &models.PostPlatform{
			PostID:   postID,
			Platform: p,
			Position: next,
			Target:   targetFor(p, subreddit),
		})
		if err != nil {
			return fmt.Errorf("error saving platform %s: %w", p, err)
		}
		next++
	}
	return nil
}

func (s *postService) Remove(ctx context.Context, userID, postID string) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublishing {
		return fmt.Errorf("%w: %s", ErrPublishInProgress, postID)
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

func (s *postService) Stats(ctx context.Context, userID string) (*transfer.PostStats, error) {
	counts, err := s.pr.CountByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error counting posts: %w", err)
	}

	stats := &transfer.PostStats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	stats.Draft = counts[string(models.PostStatusDraft)]
	stats.Scheduled = counts[string(models.PostStatusScheduled)]
	stats.Published = counts[string(models.PostStatusPublished)]
	stats.Failed = counts[string(models.PostStatusFailed)]
	return stats, nil
}
