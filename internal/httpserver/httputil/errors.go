package httputil

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const (
	ErrorTypeAuthentication = "authentication_error"
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeServer         = "server_error"
)

// ErrorResponse mirrors the OpenAI error envelope so client libraries can
// surface messages unchanged.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    *string `json:"code"`
}

// WriteError writes an error with the type derived from status.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	return write(c, status, "", "", msg)
}

// WriteErrorCode writes an error carrying a machine readable code.
func WriteErrorCode(c *fiber.Ctx, status int, code, msg string) error {
	return write(c, status, code, "", msg)
}

// WriteParamError writes a 422 pointing at the offending request field.
func WriteParamError(c *fiber.Ctx, param, msg string) error {
	return write(c, fiber.StatusUnprocessableEntity, "invalid_value", param, msg)
}

func write(c *fiber.Ctx, status int, code, param, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	detail := ErrorDetail{Message: msg, Type: TypeForStatus(status)}
	if code != "" {
		detail.Code = &code
	}
	if param != "" {
		detail.Param = &param
	}
	return c.Status(status).JSON(ErrorResponse{Error: detail})
}

// TypeForStatus maps an HTTP status onto the OpenAI error type vocabulary.
func TypeForStatus(status int) string {
	switch {
	case status == fiber.StatusUnauthorized:
		return ErrorTypeAuthentication
	case status >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeInvalidRequest
	}
}

// ErrorHandler renders errors that escape handlers (unknown routes, body
// limits, recovered panics) in the same envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		msg = fe.Message
	}
	return WriteError(c, status, msg)
}
