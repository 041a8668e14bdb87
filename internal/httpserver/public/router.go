package public

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/open_embedding_server/internal/app"
)

// Register wires up the OpenAI-compatible public API routes.
func Register(app *fiber.App, container *app.Container) {
	group := app.Group("/v1", apiKeyAuth(container))
	handler := &openAIHandler{container: container}
	group.Get("/models", handler.listModels)
	group.Get("/models/+", handler.getModel)
	group.Post("/embeddings", handler.embeddings)
}
