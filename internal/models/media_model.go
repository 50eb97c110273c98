package models

import "time"

type Media struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	PostID     *string   `db:"post_id" json:"post_id"`
	URL        string    `db:"url" json:"url"`
	StorageKey string    `db:"storage_key" json:"-"`
	Filename   string    `db:"filename" json:"filename"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	Size       int64     `db:"size" json:"size"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
