package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/service"
	"github.com/polaritylab/crosspost/pkg/utils"
)

type AuthMiddleware struct {
	keys service.ApiKeyService
	cfg  config.Config
}

func NewAuthMiddleware(cfg config.Config, keys service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{keys: keys, cfg: cfg}
}

// AuthMiddleware accepts an api_key query parameter or the session cookie and
// stores the caller in c.Locals("user_id"). The api key wins when both are sent.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey := c.Query("api_key"); apiKey != "" {
			return m.withAPIKey(c, apiKey)
		}
		if session := c.Cookies(m.cfg.CookieName); session != "" {
			return m.withSession(c, session)
		}
		return unauthorized(c, "Missing API key or session")
	}
}

func (m *AuthMiddleware) withAPIKey(c *fiber.Ctx, apiKey string) error {
	userID, err := m.keys.GetUserID(c.Context(), apiKey)
	if errors.Is(err, service.ErrKeyNotFound) {
		return unauthorized(c, "Invalid API key")
	}
	if err != nil {
		slog.Error("api key lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to verify API key",
		})
	}

	c.Locals("user_id", userID)
	return c.Next()
}

// withSession rejects OAuth state tokens, which are signed with the same
// secret but carry a platform.
func (m *AuthMiddleware) withSession(c *fiber.Ctx, session string) error {
	claims, err := utils.ValidateToken(m.cfg.SecretKey, session)
	if err != nil || claims.UserID == "" || claims.Platform != "" {
		slog.Info("session validation failed", "error", err)
		c.ClearCookie(m.cfg.CookieName)
		return unauthorized(c, "Invalid or expired session")
	}

	c.Locals("user_id", claims.UserID)
	return c.Next()
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
	})
}
