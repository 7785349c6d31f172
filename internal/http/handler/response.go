package handler

import (
	"github.com/gofiber/fiber/v2"

	"docregistry/internal/http/middleware"
)

// response is the uniform body for every endpoint: a success flag, a
// human-readable message, and the payload (record, list, or null).
type response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	RequestID string `json:"request_id,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// respond writes a success envelope with the given payload.
func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(response{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: requestIDFromCtx(c),
	})
}

// writeError writes a failure envelope without leaking internal errors.
func writeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(response{
		Success:   false,
		Message:   message,
		Data:      nil,
		RequestID: requestIDFromCtx(c),
	})
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "Bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "Resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "Method not allowed")
		default:
			return writeError(c, status, "Internal server error")
		}
	}
}
