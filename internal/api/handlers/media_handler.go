package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/polaritylab/crosspost/internal/service"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(s service.MediaService) *MediaHandler {
	return &MediaHandler{s: s}
}

func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	media, err := h.s.Upload(c.Context(), GetUserID(c), file)
	if err != nil {
		return respondError(c, err, "Unable to upload file")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"media": media,
	})
}

func (h *MediaHandler) List(c *fiber.Ctx) error {
	media, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to list media")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"media": media,
	})
}

func (h *MediaHandler) Remove(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return respondError(c, err, "Unable to remove media")
	}
	return c.SendStatus(fiber.StatusOK)
}
