package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// CronAuth admits requests carrying "Authorization: Bearer <secret>". An
// empty secret rejects everything.
func CronAuth(secret string) fiber.Handler {
	expected := []byte("Bearer " + secret)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get(fiber.HeaderAuthorization))
		if secret == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
