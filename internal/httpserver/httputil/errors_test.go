package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, app *fiber.App, path string) (int, ErrorResponse) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestWriteErrorShapes(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/auth", func(c *fiber.Ctx) error {
		return WriteErrorCode(c, fiber.StatusUnauthorized, "invalid_api_key", "invalid api key")
	})
	app.Get("/param", func(c *fiber.Ctx) error {
		return WriteParamError(c, "input", "input must not be empty")
	})
	app.Get("/server", func(c *fiber.Ctx) error {
		return WriteError(c, fiber.StatusInternalServerError, "")
	})
	app.Get("/escaped", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	status, body := decode(t, app, "/auth")
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, ErrorTypeAuthentication, body.Error.Type)
	require.Equal(t, "invalid_api_key", *body.Error.Code)
	require.Nil(t, body.Error.Param)

	status, body = decode(t, app, "/param")
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.Equal(t, ErrorTypeInvalidRequest, body.Error.Type)
	require.Equal(t, "input", *body.Error.Param)

	status, body = decode(t, app, "/server")
	require.Equal(t, fiber.StatusInternalServerError, status)
	require.Equal(t, ErrorTypeServer, body.Error.Type)
	require.Equal(t, "Internal Server Error", body.Error.Message)

	status, body = decode(t, app, "/escaped")
	require.Equal(t, fiber.StatusInternalServerError, status)
	require.Equal(t, "internal server error", body.Error.Message)

	status, body = decode(t, app, "/missing")
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, ErrorTypeInvalidRequest, body.Error.Type)
}
