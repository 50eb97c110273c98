package handlers

import (
	"github.com/gofiber/fiber/v2"
	job "github.com/polaritylab/crosspost/internal/jobs"
	"github.com/polaritylab/crosspost/internal/service"
)

// CronHandler exposes the scheduled sweeps to an external scheduler.
type CronHandler struct {
	pj *job.PublishJob
	as service.AnalyticsService
}

func NewCronHandler(pj *job.PublishJob, as service.AnalyticsService) *CronHandler {
	return &CronHandler{pj: pj, as: as}
}

func (h *CronHandler) Publish(c *fiber.Ctx) error {
	sweep, err := h.pj.Run(c.Context())
	if err != nil {
		return respondError(c, err, "Publish sweep failed")
	}
	return c.Status(fiber.StatusOK).JSON(sweep)
}

func (h *CronHandler) Analytics(c *fiber.Ctx) error {
	fetched, err := h.as.Refresh(c.Context(), "")
	if err != nil {
		return respondError(c, err, "Analytics sweep failed")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"fetched": fetched,
	})
}
