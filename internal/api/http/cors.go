package http

import (
	"github.com/gofiber/fiber/v2"
)

// CORSMiddleware allows the single configured browser origin. Preflight
// requests are answered here and never reach the handlers.
func CORSMiddleware(allowedOrigin string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, allowedOrigin)
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Authorization, Content-Type, X-Requested-With")
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
