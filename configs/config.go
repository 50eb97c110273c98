package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// OAuthApp holds the client credentials registered with one platform.
type OAuthApp struct {
	ClientID     string
	ClientSecret string
}

type Publish struct {
	Schedule      string
	MaxRetries    int
	BatchSize     int
	TargetTimeout time.Duration
	StaleAfter    time.Duration
}

type Config struct {
	Port        string
	AppURL      string
	FrontendURL string
	PostgresURI string
	RedisURI    string
	AutoMigrate bool

	SecretKey     string
	CookieName    string
	EncryptionKey string
	CronSecret    string

	X         OAuthApp
	Meta      OAuthApp
	LinkedIn  OAuthApp
	Tiktok    OAuthApp
	Google    OAuthApp
	Reddit    OAuthApp
	RedditUA  string
	R2        R2
	Publish   Publish
	HTTP      HTTP
	Analytics string
	Refresh   string

	SlackToken   string
	SlackChannel string
}

type HTTP struct {
	Timeout       time.Duration
	PlatformRPS   float64
	PlatformBurst int
}

const refreshLockMargin = 30 * time.Second

// RefreshLockTTL is how long a token refresh may hold its lock. It outlives
// the slowest token endpoint call the HTTP client allows.
func (h HTTP) RefreshLockTTL() time.Duration {
	return h.Timeout + refreshLockMargin
}

func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		AppURL:      getEnv("APP_URL", "http://localhost:3000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),

		SecretKey:     getEnv("SECRET_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "crosspost_session"),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		CronSecret:    getEnv("CRON_SECRET", ""),

		X: OAuthApp{
			ClientID:     getEnv("X_CLIENT_ID", ""),
			ClientSecret: getEnv("X_CLIENT_SECRET", ""),
		},
		Meta: OAuthApp{
			ClientID:     getEnv("META_APP_ID", ""),
			ClientSecret: getEnv("META_APP_SECRET", ""),
		},
		LinkedIn: OAuthApp{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		},
		Tiktok: OAuthApp{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
		},
		Google: OAuthApp{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		Reddit: OAuthApp{
			ClientID:     getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		},
		RedditUA: getEnv("REDDIT_USER_AGENT", "polarity-lab-content-manager/1.0"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Publish: Publish{
			Schedule:      getEnv("PUBLISH_SCHEDULE", "@every 1m"),
			MaxRetries:    getEnvInt("PUBLISH_MAX_RETRIES", 3),
			BatchSize:     getEnvInt("PUBLISH_BATCH_SIZE", 20),
			TargetTimeout: getEnvDuration("PUBLISH_TARGET_TIMEOUT", 3*time.Minute),
			StaleAfter:    getEnvDuration("PUBLISH_STALE_AFTER", 30*time.Minute),
		},
		HTTP: HTTP{
			Timeout:       getEnvDuration("HTTP_TIMEOUT", 60*time.Second),
			PlatformRPS:   getEnvFloat("PLATFORM_RPS", 5),
			PlatformBurst: getEnvInt("PLATFORM_BURST", 5),
		},
		Analytics: getEnv("ANALYTICS_SCHEDULE", "@every 1h"),
		Refresh:   getEnv("TOKEN_REFRESH_SCHEDULE", "@every 00h10m00s"),

		SlackToken:   getEnv("SLACK_BOT_TOKEN", ""),
		SlackChannel: getEnv("SLACK_CHANNEL", ""),
	}
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.AppURL, "https://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
