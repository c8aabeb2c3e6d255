package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"docqr/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// wantsJSON reports whether the client prefers JSON over HTML.
func wantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// ErrorHandler returns a Fiber global error handler. Browsers get the 404 or
// error page; clients asking for JSON get the error envelope.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		var code, message string
		switch status {
		case fiber.StatusBadRequest:
			code, message = "BAD_REQUEST", "bad request"
		case fiber.StatusNotFound:
			code, message = "NOT_FOUND", "resource not found"
		case fiber.StatusMethodNotAllowed:
			code, message = "METHOD_NOT_ALLOWED", "method not allowed"
		case fiber.StatusRequestEntityTooLarge:
			code, message = "PAYLOAD_TOO_LARGE", "upload is too large"
		case fiber.StatusServiceUnavailable:
			code, message = "SERVICE_UNAVAILABLE", "dependency unavailable"
		default:
			if status < fiber.StatusInternalServerError {
				code, message = "REQUEST_ERROR", fe.Message
				break
			}
			status = fiber.StatusInternalServerError
			code, message = "INTERNAL_ERROR", "internal server error"
			log.WithFields(logrus.Fields{
				"request_id": requestIDFromCtx(c),
				"path":       c.Path(),
			}).WithError(err).Error("unhandled error")
		}

		if c.Method() == fiber.MethodHead {
			return c.SendStatus(status)
		}
		if wantsJSON(c) {
			return writeError(c, status, code, message)
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		var renderErr error
		if status == fiber.StatusNotFound {
			renderErr = c.Status(status).Render("404", fiber.Map{})
		} else {
			renderErr = c.Status(status).Render("error", fiber.Map{
				"Status":    status,
				"Message":   message,
				"RequestID": requestIDFromCtx(c),
			})
		}
		if renderErr != nil {
			return c.Status(status).SendString(message)
		}
		return nil
	}
}
