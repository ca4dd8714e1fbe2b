package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/types"
)

// UserIDKey is the fiber.Ctx local holding the authenticated user id
const UserIDKey = "userID"

// AuthUser validates that the request has user role authorization
func AuthUser(validator services.SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, validator, []string{"user"}, "management.authorization.user")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, validator services.SessionValidator, roles []string, errorType string) error {
	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	// Validate session
	origin := fmt.Sprintf("%s://%s", c.Protocol(), c.Hostname())
	user, err := validator.ValidateSession(session, roles, origin)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	// Set user data in context
	c.Locals(UserIDKey, user.ID)
	c.Locals("user", user)

	return c.Next()
}

// UserID returns the authenticated user id set by AuthUser
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}
