package models

import "time"

// PlatformConnection stores the OAuth credentials of one platform account.
// AccessToken and RefreshToken hold ciphertext, never plaintext.
type PlatformConnection struct {
	ID                string     `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"user_id"`
	Platform          Platform   `db:"platform" json:"platform"`
	PlatformAccountID string     `db:"platform_account_id" json:"platform_account_id"`
	PlatformUsername  *string    `db:"platform_username" json:"platform_username"`
	AccessToken       string     `db:"access_token" json:"-"`
	RefreshToken      *string    `db:"refresh_token" json:"-"`
	TokenExpiresAt    *time.Time `db:"token_expires_at" json:"token_expires_at"`
	Scopes            string     `db:"scopes" json:"scopes"`
	ConnectedAt       time.Time  `db:"connected_at" json:"connected_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
