package transfer

import (
	"time"

	"github.com/polaritylab/crosspost/internal/models"
)

type PostCreation struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Platforms    []string   `json:"platforms"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	MediaIDs     []string   `json:"media_ids"`
	Subreddit    string     `json:"subreddit"`
}

type PostUpdate struct {
	Title        *string    `json:"title"`
	Content      *string    `json:"content"`
	Platforms    []string   `json:"platforms"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	Unschedule   bool       `json:"unschedule"`
	Subreddit    *string    `json:"subreddit"`
}

type PostDetail struct {
	*models.Post
	Platforms []*models.PostPlatform `json:"platforms"`
	Media     []*models.Media        `json:"media"`
}

type PostStats struct {
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"by_status"`
	Draft     int            `json:"draft"`
	Scheduled int            `json:"scheduled"`
	Published int            `json:"published"`
	Failed    int            `json:"failed"`
}

type PublishResponse struct {
	Success      bool     `json:"success"`
	AllSucceeded bool     `json:"all_succeeded"`
	Errors       []string `json:"errors"`
}

type AnalyticsOverview struct {
	Platforms []*models.PlatformTotals `json:"platforms"`
	Totals    models.PlatformTotals    `json:"totals"`
	Timeline  []*models.TimelinePoint  `json:"timeline"`
}

// PublishOutcome is the result of one post in a publish sweep.
type PublishOutcome struct {
	PostID  string   `json:"post_id"`
	Success bool     `json:"success"`
	Skipped bool     `json:"skipped,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type PublishSweep struct {
	Processed int               `json:"processed"`
	Results   []*PublishOutcome `json:"results"`
}
