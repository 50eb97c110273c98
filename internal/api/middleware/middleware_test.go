package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/service"
	"github.com/polaritylab/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKeys struct {
	service.ApiKeyService
	keys map[string]string
}

func (s staticKeys) GetUserID(_ context.Context, apiKey string) (string, error) {
	if apiKey == "cp_broken" {
		return "", errors.New("connection refused")
	}
	if id, ok := s.keys[apiKey]; ok {
		return id, nil
	}
	return "", service.ErrKeyNotFound
}

var testConfig = config.Config{SecretKey: "secret", CookieName: "session"}

func newAuthApp() *fiber.App {
	app := fiber.New()
	m := NewAuthMiddleware(testConfig, staticKeys{keys: map[string]string{"cp_valid": "user-key"}})
	app.Get("/me", m.AuthMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	session, err := utils.GenerateToken(testConfig.SecretKey, "user-cookie", time.Hour)
	require.NoError(t, err)
	state, err := utils.GenerateStateToken(testConfig.SecretKey, "user-cookie", string(models.PlatformX), time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		target string
		cookie string
		status int
	}{
		{"no credentials", "/me", "", fiber.StatusUnauthorized},
		{"api key", "/me?api_key=cp_valid", "", fiber.StatusOK},
		{"unknown api key", "/me?api_key=cp_nope", "", fiber.StatusUnauthorized},
		{"key lookup fails", "/me?api_key=cp_broken", "", fiber.StatusInternalServerError},
		{"api key wins over cookie", "/me?api_key=cp_valid", "garbage", fiber.StatusOK},
		{"session cookie", "/me", session, fiber.StatusOK},
		{"oauth state is not a session", "/me", state, fiber.StatusUnauthorized},
		{"garbage cookie", "/me", "garbage", fiber.StatusUnauthorized},
	}

	app := newAuthApp()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.target, nil)
			if tc.cookie != "" {
				req.Header.Set("Cookie", testConfig.CookieName+"="+tc.cookie)
			}
			res, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.StatusCode)
		})
	}
}

func TestInvalidSessionClearsCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", testConfig.CookieName+"=garbage")

	res, err := newAuthApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	var cleared bool
	for _, ck := range res.Cookies() {
		if ck.Name == testConfig.CookieName && ck.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestCronAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/cron", CronAuth("s3cret"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for header, status := range map[string]int{
		"":              fiber.StatusUnauthorized,
		"Bearer wrong":  fiber.StatusUnauthorized,
		"s3cret":        fiber.StatusUnauthorized,
		"Bearer s3cret": fiber.StatusOK,
	} {
		req := httptest.NewRequest("GET", "/cron", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, status, res.StatusCode, header)
	}
}

func TestCronAuthWithoutSecret(t *testing.T) {
	app := fiber.New()
	app.Get("/cron", CronAuth(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/cron", nil)
	req.Header.Set("Authorization", "Bearer ")
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}
