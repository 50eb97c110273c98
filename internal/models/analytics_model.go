package models

import "time"

type AnalyticsSnapshot struct {
	ID             string    `db:"id" json:"id"`
	PostPlatformID string    `db:"post_platform_id" json:"post_platform_id"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	Engagements    int64     `db:"engagements" json:"engagements"`
	Clicks         int64     `db:"clicks" json:"clicks"`
	Likes          int64     `db:"likes" json:"likes"`
	Shares         int64     `db:"shares" json:"shares"`
	Comments       int64     `db:"comments" json:"comments"`
	Reach          int64     `db:"reach" json:"reach"`
	SnapshotAt     time.Time `db:"snapshot_at" json:"snapshot_at"`
}

// PublishedTarget is a published post target joined with what is needed to
// query its metrics.
type PublishedTarget struct {
	PostPlatformID       string   `json:"post_platform_id"`
	PostID               string   `json:"post_id"`
	Platform             Platform `json:"platform"`
	NativePostID         string   `json:"native_post_id"`
	PlatformConnectionID string   `json:"platform_connection_id"`
}

type PlatformTotals struct {
	Platform    Platform `json:"platform"`
	Posts       int64    `json:"posts"`
	Impressions int64    `json:"impressions"`
	Engagements int64    `json:"engagements"`
	Likes       int64    `json:"likes"`
	Shares      int64    `json:"shares"`
	Comments    int64    `json:"comments"`
	Reach       int64    `json:"reach"`
}

type TimelinePoint struct {
	Day         time.Time `json:"day"`
	Impressions int64     `json:"impressions"`
	Engagements int64     `json:"engagements"`
}
