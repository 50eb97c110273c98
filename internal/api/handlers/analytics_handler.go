package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/polaritylab/crosspost/internal/service"
)

type AnalyticsHandler struct {
	s service.AnalyticsService
}

func NewAnalyticsHandler(s service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{s: s}
}

func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.s.Overview(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to load analytics")
	}
	return c.Status(fiber.StatusOK).JSON(overview)
}

func (h *AnalyticsHandler) Refresh(c *fiber.Ctx) error {
	fetched, err := h.s.Refresh(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to refresh analytics")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"fetched": fetched,
	})
}
