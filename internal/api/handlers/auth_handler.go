package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/service"
	"github.com/polaritylab/crosspost/pkg/utils"
)

const sessionDuration = 24 * time.Hour

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	loginURL, err := h.s.LoginURL()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login is not configured",
		})
	}
	return c.Redirect(loginURL)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	userID, err := h.s.LoginCallback(c.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, userID, sessionDuration)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.cfg.SecureCookies(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(h.cfg.CookieName)
	return c.SendStatus(fiber.StatusOK)
}
