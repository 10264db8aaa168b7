package middleware

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"html2pdf-api/internal/config"
)

func TestRegister_AddsHealthAndRequestID(t *testing.T) {
	cfg := config.Default()
	cfg.Upload.Dir = t.TempDir()

	app := fiber.New()
	Register(app, cfg)
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	healthReq, _ := http.NewRequest(http.MethodGet, "/ops/health", nil)
	healthResp, err := app.Test(healthReq)
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	if healthResp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected health endpoint 200, got %d", healthResp.StatusCode)
	}

	readyReq, _ := http.NewRequest(http.MethodGet, "/ops/ready", nil)
	readyResp, err := app.Test(readyReq)
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	if readyResp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected ready endpoint 200, got %d", readyResp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("ping request failed: %v", err)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id to be present")
	}
}

func TestRegister_NotReadyWithoutUploadDir(t *testing.T) {
	cfg := config.Default()
	cfg.Upload.Dir = filepath.Join(t.TempDir(), "missing")

	app := fiber.New()
	Register(app, cfg)

	req, _ := http.NewRequest(http.MethodGet, "/ops/ready", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 when upload dir is missing, got %d", resp.StatusCode)
	}
}
