package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/platforms"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/internal/transfer"
)

const timelineDays = 30

type AnalyticsService interface {
	// Refresh pulls fresh metrics for every published target of the user and
	// stores them as snapshots. An empty userID covers every user.
	Refresh(ctx context.Context, userID string) (int, error)
	Overview(ctx context.Context, userID string) (*transfer.AnalyticsOverview, error)
}

type analyticsService struct {
	targets   repository.PostPlatformRepository
	analytics repository.AnalyticsRepository
	tokens    TokenService
	registry  *platforms.Registry
	now       func() time.Time
}

func NewAnalyticsService(
	targets repository.PostPlatformRepository,
	analytics repository.AnalyticsRepository,
	tokens TokenService,
	registry *platforms.Registry) AnalyticsService {
	return &analyticsService{
		targets:   targets,
		analytics: analytics,
		tokens:    tokens,
		registry:  registry,
		now:       time.Now,
	}
}

func (s *analyticsService) Refresh(ctx context.Context, userID string) (int, error) {
	published, err := s.targets.ListPublishedByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error listing published targets: %w", err)
	}

	stored := 0
	for _, t := range published {
		if t.NativePostID == "" || t.PlatformConnectionID == "" {
			continue
		}

		adapter, err := s.registry.Get(t.Platform)
		if err != nil {
			continue
		}
		fetcher, ok := adapter.(platforms.AnalyticsFetcher)
		if !ok {
			continue
		}

		token, err := s.tokens.GetValidToken(ctx, t.PlatformConnectionID)
		if err != nil {
			slog.Warn("skipping analytics", "post_platform_id", t.PostPlatformID, "error", err)
			continue
		}

		m := fetcher.FetchAnalytics(ctx, platforms.AnalyticsRequest{
			AccessToken:  token,
			NativePostID: t.NativePostID,
		})

		_, err = s.analytics.CreateSnapshot(ctx, &models.AnalyticsSnapshot{
			PostPlatformID: t.PostPlatformID,
			Impressions:    m.Impressions,
			Engagements:    m.Engagements,
			Clicks:         m.Clicks,
			Likes:          m.Likes,
			Shares:         m.Shares,
			Comments:       m.Comments,
			Reach:          m.Reach,
			SnapshotAt:     s.now().UTC(),
		})
		if err != nil {
			slog.Error("error storing analytics snapshot", "post_platform_id", t.PostPlatformID, "error", err)
			continue
		}
		stored++
	}

	slog.Info("analytics refreshed", "user_id", userID, "targets", len(published), "stored", stored)
	return stored, nil
}

func (s *analyticsService) Overview(ctx context.Context, userID string) (*transfer.AnalyticsOverview, error) {
	byPlatform, err := s.analytics.AggregateByPlatform(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error aggregating analytics: %w", err)
	}
	timeline, err := s.analytics.Timeline(ctx, userID, timelineDays)
	if err != nil {
		return nil, fmt.Errorf("error loading analytics timeline: %w", err)
	}

	overview := &transfer.AnalyticsOverview{
		Platforms: byPlatform,
		Timeline:  timeline,
	}
	if overview.Platforms == nil {
		overview.Platforms = []*models.PlatformTotals{}
	}
	if overview.Timeline == nil {
		overview.Timeline = []*models.TimelinePoint{}
	}

	for _, p := range byPlatform {
		overview.Totals.Posts += p.Posts
		overview.Totals.Impressions += p.Impressions
		overview.Totals.Engagements += p.Engagements
		overview.Totals.Likes += p.Likes
		overview.Totals.Shares += p.Shares
		overview.Totals.Comments += p.Comments
		overview.Totals.Reach += p.Reach
	}

	return overview, nil
}
