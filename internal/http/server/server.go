package server

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/domain"
	"html2pdf-api/internal/http/handlers"
	"html2pdf-api/internal/http/middleware"
	"html2pdf-api/internal/infra/cache"
	"html2pdf-api/internal/infra/chrome"
	"html2pdf-api/internal/infra/logging"
)

// Deps are the collaborators of the HTTP server. Renderer defaults to the
// engine named in the config; Cache is used only when the PDF cache is enabled.
type Deps struct {
	Config   config.Config
	Renderer domain.Renderer
	Cache    cache.Store
}

// New creates and configures a new Fiber app instance.
func New(deps Deps) *fiber.App {
	cfg := deps.Config

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		logging.Error("Failed to create upload dir", "dir", cfg.Upload.Dir, "error", err)
	}

	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit(),
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, cfg)
	registerRoutes(app, cfg, newRenderer(deps))

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func newRenderer(deps Deps) domain.Renderer {
	cfg := deps.Config
	r := deps.Renderer
	if r == nil {
		var err error
		r, err = chrome.NewRenderer(cfg)
		if err != nil {
			logging.Error("Unknown PDF engine, using chromedp", "engine", cfg.PDF.Engine, "error", err)
			r = chrome.NewChromedpRenderer(cfg)
		}
	}
	if cfg.Cache.PDFCacheEnabled && deps.Cache != nil {
		r = cache.NewCachingRenderer(r, deps.Cache, cfg)
	}
	return r
}

func registerRoutes(app *fiber.App, cfg config.Config, r domain.Renderer) {
	svc := handlers.NewConvertService(cfg, r)

	app.Post("/convert", svc.HandleConvertFile)
	app.Post("/convert/base64", svc.HandleConvertFileBase64)
	app.Post("/convert/html/base64", svc.HandleConvertHTMLBase64)
	app.Post("/convert/html/file", svc.HandleConvertHTMLFile)

	docs := app.Group("/api-docs")
	docs.Get("/", handlers.HandleSwaggerUI("/api-docs/openapi.json"))
	docs.Get("/openapi.json", handlers.HandleOpenAPIJSON)
	docs.Get("/openapi.yaml", handlers.HandleOpenAPIYAML)

	ops := app.Group("/ops")
	ops.Get("/chrome/stats", svc.HandleChromeStats)
	ops.Get("/monitor", monitor.New())
}

// errorHandler writes every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		logging.Error("Request failed", "path", c.Path(), "status", code, "message", msg)
	} else {
		logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}
