package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/service"
)

const verifierMaxAge = 300

type PlatformHandler struct {
	s   service.ConnectionService
	cfg config.Config
}

func NewPlatformHandler(s service.ConnectionService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		s:   s,
		cfg: cfg,
	}
}

func verifierCookie(platform models.Platform) string {
	return "oauth_verifier_" + string(platform)
}

func (h *PlatformHandler) Connect(c *fiber.Ctx) error {
	platform, err := models.ParsePlatform(c.Params("platform"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}

	authURL, verifier, err := h.s.AuthURL(c.Context(), GetUserID(c), platform)
	if err != nil {
		return respondError(c, err, "Unable to start authorization")
	}

	if verifier != "" {
		c.Cookie(&fiber.Cookie{
			Name:     verifierCookie(platform),
			Value:    verifier,
			HTTPOnly: true,
			Secure:   h.cfg.SecureCookies(),
			SameSite: fiber.CookieSameSiteLaxMode,
			Path:     "/",
			MaxAge:   verifierMaxAge,
		})
	}

	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

// Callback completes the OAuth handshake and sends the browser back to the
// settings page with either connected=<platform> or error=<reason>.
func (h *PlatformHandler) Callback(c *fiber.Ctx) error {
	platform, err := models.ParsePlatform(c.Params("platform"))
	if err != nil {
		return h.settingsRedirect(c, "error", "unknown_platform")
	}

	if reason := c.Query("error"); reason != "" {
		return h.settingsRedirect(c, "error", reason)
	}

	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return h.settingsRedirect(c, "error", "missing_params")
	}

	verifier := c.Cookies(verifierCookie(platform))
	c.ClearCookie(verifierCookie(platform))

	_, err = h.s.Callback(c.Context(), platform, code, state, verifier)
	if err != nil {
		slog.Info(err.Error())
		if errors.Is(err, service.ErrInvalidState) {
			return h.settingsRedirect(c, "error", "invalid_state")
		}
		return h.settingsRedirect(c, "error", "callback_failed")
	}

	return h.settingsRedirect(c, "connected", string(platform))
}

func (h *PlatformHandler) settingsRedirect(c *fiber.Ctx, key, value string) error {
	redirectURL := fmt.Sprintf("%s/settings?%s=%s", h.cfg.FrontendURL, key, url.QueryEscape(value))
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListConnections(c *fiber.Ctx) error {
	conns, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch platform connections")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"connections": conns,
	})
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	err := h.s.Disconnect(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Unable to disconnect platform")
	}
	return c.SendStatus(fiber.StatusOK)
}
