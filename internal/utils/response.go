package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/sheetsdb/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends the standard error envelope. The message is also
// carried under "error" for data API clients.
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":     message,
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, types.TypeNotFound)
}

// WriteSuccessResponse sends the data API's mutation result
func WriteSuccessResponse(c *fiber.Ctx, status int, data interface{}) error {
	body := fiber.Map{"success": true}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}

// WriteResponseStruct defines the schema for data API mutation responses
type WriteResponseStruct struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}
