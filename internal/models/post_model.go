package models

import "time"

type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

type TargetStatus string

const (
	TargetStatusPending    TargetStatus = "pending"
	TargetStatusPublishing TargetStatus = "publishing"
	TargetStatusPublished  TargetStatus = "published"
	TargetStatusFailed     TargetStatus = "failed"
)

type Post struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Title        *string    `db:"title" json:"title"`
	Content      string     `db:"content" json:"content"`
	Status       PostStatus `db:"status" json:"status"`
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at"`
	RetryCount   int        `db:"retry_count" json:"retry_count"`
	LastError    *string    `db:"last_error" json:"last_error"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// PostPlatform is one publish target of a post. Position keeps the order in
// which platforms were selected; Target carries a per-platform destination
// such as a subreddit.
type PostPlatform struct {
	ID                   string       `db:"id" json:"id"`
	PostID               string       `db:"post_id" json:"post_id"`
	Platform             Platform     `db:"platform" json:"platform"`
	Position             int          `db:"position" json:"position"`
	Target               *string      `db:"target" json:"target"`
	PlatformConnectionID *string      `db:"platform_connection_id" json:"platform_connection_id"`
	NativePostID         *string      `db:"native_post_id" json:"native_post_id"`
	NativePostURL        *string      `db:"native_post_url" json:"native_post_url"`
	Status               TargetStatus `db:"status" json:"status"`
	Error                *string      `db:"error" json:"error"`
	PublishedAt          *time.Time   `db:"published_at" json:"published_at"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
}

type PostFilter struct {
	Status   PostStatus
	Platform Platform
	From     *time.Time
	To       *time.Time
}
