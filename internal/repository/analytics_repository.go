package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/polaritylab/crosspost/internal/models"
)

type AnalyticsRepository interface {
	CreateSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot) (string, error)
	AggregateByPlatform(ctx context.Context, userID string) ([]*models.PlatformTotals, error)
	Timeline(ctx context.Context, userID string, days int) ([]*models.TimelinePoint, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) CreateSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot) (string, error) {
	query := `
		INSERT INTO analytics_snapshots (id, post_platform_id, impressions, engagements, clicks, likes, shares, comments, reach)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, query, id, snap.PostPlatformID, snap.Impressions, snap.Engagements, snap.Clicks,
		snap.Likes, snap.Shares, snap.Comments, snap.Reach)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return id, nil
}

// AggregateByPlatform sums the latest snapshot of each published target.
func (r *analyticsRepository) AggregateByPlatform(ctx context.Context, userID string) ([]*models.PlatformTotals, error) {
	query := `
		WITH latest AS (
			SELECT DISTINCT ON (s.post_platform_id) s.*
			FROM analytics_snapshots s
			ORDER BY s.post_platform_id, s.snapshot_at DESC
		)
		SELECT pp.platform,
			COUNT(pp.id),
			COALESCE(SUM(l.impressions), 0),
			COALESCE(SUM(l.engagements), 0),
			COALESCE(SUM(l.likes), 0),
			COALESCE(SUM(l.shares), 0),
			COALESCE(SUM(l.comments), 0),
			COALESCE(SUM(l.reach), 0)
		FROM post_platforms pp
		JOIN posts p ON p.id = pp.post_id
		LEFT JOIN latest l ON l.post_platform_id = pp.id
		WHERE p.user_id = $1 AND pp.status = 'published'
		GROUP BY pp.platform
		ORDER BY pp.platform
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var totals []*models.PlatformTotals
	for rows.Next() {
		var t models.PlatformTotals
		err := rows.Scan(&t.Platform, &t.Posts, &t.Impressions, &t.Engagements, &t.Likes, &t.Shares, &t.Comments, &t.Reach)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		totals = append(totals, &t)
	}
	return totals, rows.Err()
}

func (r *analyticsRepository) Timeline(ctx context.Context, userID string, days int) ([]*models.TimelinePoint, error) {
	query := `
		SELECT date_trunc('day', s.snapshot_at) AS day,
			COALESCE(SUM(s.impressions), 0),
			COALESCE(SUM(s.engagements), 0)
		FROM analytics_snapshots s
		JOIN post_platforms pp ON pp.id = s.post_platform_id
		JOIN posts p ON p.id = pp.post_id
		WHERE p.user_id = $1
			AND s.snapshot_at >= NOW() - make_interval(days => $2)
		GROUP BY day
		ORDER BY day ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, days)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var points []*models.TimelinePoint
	for rows.Next() {
		var p models.TimelinePoint
		if err := rows.Scan(&p.Day, &p.Impressions, &p.Engagements); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}
