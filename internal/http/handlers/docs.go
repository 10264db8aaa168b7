package handlers

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

var openAPIDoc struct {
	once sync.Once
	doc  map[string]any
	err  error
}

func loadOpenAPI() (map[string]any, error) {
	openAPIDoc.once.Do(func() {
		var doc map[string]any
		if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
			openAPIDoc.err = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		openAPIDoc.doc = doc
	})
	return openAPIDoc.doc, openAPIDoc.err
}

// HandleOpenAPIYAML serves the embedded OpenAPI document as written.
func HandleOpenAPIYAML(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/yaml")
	return c.Send(openAPIYAML)
}

// HandleOpenAPIJSON serves the OpenAPI document as JSON.
func HandleOpenAPIJSON(c *fiber.Ctx) error {
	doc, err := loadOpenAPI()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(doc)
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>HTML to PDF API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function () {
      SwaggerUIBundle({ url: "%s", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>`

// HandleSwaggerUI serves a Swagger UI page pointing at the JSON document.
func HandleSwaggerUI(docPath string) fiber.Handler {
	page := fmt.Sprintf(swaggerPage, docPath)
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(page)
	}
}
