package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/polaritylab/crosspost/internal/service"
)

type ApiKeyHandler struct {
	s service.ApiKeyService
}

func NewApiKeyHandler(s service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{s: s}
}

// CreateApiKey returns the new key once; it is not shown again in full.
func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	key, err := h.s.Create(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to create API key")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key": key,
	})
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to list API keys")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"api_keys": keys,
	})
}

func (h *ApiKeyHandler) RemoveAPIKey(c *fiber.Ctx) error {
	if err := h.s.RemoveAPIKey(c.Context(), GetUserID(c), c.Query("id")); err != nil {
		return respondError(c, err, "Unable to delete API key")
	}
	return c.SendStatus(fiber.StatusOK)
}
