package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// AllowAnyOrigin marks every data API response, errors included, as readable from any origin
func AllowAnyOrigin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		return c.Next()
	}
}

// Preflight answers CORS preflight requests without authorization
func Preflight(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
	c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
	return c.SendStatus(fiber.StatusOK)
}
