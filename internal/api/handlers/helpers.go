package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/polaritylab/crosspost/internal/service"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrPlatformNotEnabled):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrMediaNotFound),
		errors.Is(err, service.ErrConnectionNotFound),
		errors.Is(err, service.ErrKeyNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrPublishInProgress):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError maps service errors to a status code. Internal failures are
// logged and hidden behind fallback.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error(fallback, "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": fallback,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
