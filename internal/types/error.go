package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error types carried in CustomError.Type and the JSON error envelope
const (
	TypeUnauthorized     = "unauthorized"
	TypeNotFound         = "notFound"
	TypeMethodNotAllowed = "methodNotAllowed"
	TypeBadRequest       = "badRequest"
	TypeInternal         = "internal"
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Unauthorized reports bad or missing credentials (401)
func Unauthorized(message string) *CustomError {
	return &CustomError{Code: fiber.StatusUnauthorized, Message: message, Type: TypeUnauthorized}
}

// NotFound reports a missing project, endpoint or row (404)
func NotFound(message string) *CustomError {
	return &CustomError{Code: fiber.StatusNotFound, Message: message, Type: TypeNotFound}
}

// MethodNotAllowed reports a verb disabled for a sheet (405)
func MethodNotAllowed(message string) *CustomError {
	return &CustomError{Code: fiber.StatusMethodNotAllowed, Message: message, Type: TypeMethodNotAllowed}
}

// BadRequest reports a missing required field or an unusable sheet (400)
func BadRequest(message string) *CustomError {
	return &CustomError{Code: fiber.StatusBadRequest, Message: message, Type: TypeBadRequest}
}

// Internal reports a store, network or unexpected failure (500)
func Internal(message string) *CustomError {
	return &CustomError{Code: fiber.StatusInternalServerError, Message: message, Type: TypeInternal}
}

// AsCustomError unwraps err into a CustomError if it carries one
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
