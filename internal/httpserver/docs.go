package httpserver

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	fiberfs "github.com/gofiber/fiber/v2/middleware/filesystem"
)

//go:embed docs
var docsFS embed.FS

const docsRoot = "docs"

func embeddedDocs() (fs.FS, error) {
	return fs.Sub(docsFS, docsRoot)
}

// mountDocs serves the OpenAPI document, the Swagger UI page and its local
// assets under /docs.
func mountDocs(app *fiber.App) {
	docs, err := embeddedDocs()
	if err != nil {
		slog.Warn("api docs not embedded", "error", err)
		return
	}

	spec, err := fs.ReadFile(docs, "openapi.json")
	if err != nil {
		slog.Warn("openapi document missing", "error", err)
		return
	}
	index, err := fs.ReadFile(docs, "index.html")
	if err != nil {
		slog.Warn("docs index missing", "error", err)
		return
	}

	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.Send(spec)
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(index)
	})
	app.Use("/docs", fiberfs.New(fiberfs.Config{
		Root:   http.FS(docs),
		Index:  "index.html",
		Browse: false,
	}))
}
