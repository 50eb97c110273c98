package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshLockOutlivesHTTPTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "90s")

	cfg := LoadConfig()
	assert.Equal(t, 90*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.RefreshLockTTL())
	assert.Greater(t, cfg.HTTP.RefreshLockTTL(), cfg.HTTP.Timeout)
}

func TestDefaultRefreshLockTTL(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "")

	cfg := LoadConfig()
	assert.Equal(t, 90*time.Second, cfg.HTTP.RefreshLockTTL())
}

func TestSecureCookies(t *testing.T) {
	assert.True(t, Config{AppURL: "https://api.example.com"}.SecureCookies())
	assert.False(t, Config{AppURL: "http://localhost:3000"}.SecureCookies())
}
