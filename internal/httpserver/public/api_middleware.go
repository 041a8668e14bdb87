package public

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/open_embedding_server/internal/app"
	"github.com/ncecere/open_embedding_server/internal/auth"
	"github.com/ncecere/open_embedding_server/internal/httpserver/httputil"
)

// apiKeyAuth validates the Authorization bearer token against the static
// credential before any handler reads the body.
func apiKeyAuth(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return unauthorized(c, "authorization header required")
		}

		token, ok := auth.BearerToken(raw)
		if !ok {
			return unauthorized(c, "bearer token required")
		}

		if container == nil || container.Credential == nil || !container.Credential.Verify(token) {
			return unauthorized(c, "invalid api key")
		}

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return httputil.WriteErrorCode(c, fiber.StatusUnauthorized, "invalid_api_key", msg)
}
