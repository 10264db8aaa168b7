package chrome

import (
	"bytes"
	"fmt"
	"os"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/domain"
)

var pdfMagic = []byte("%PDF-")

// NewRenderer returns the per-request renderer selected by pdf.engine.
func NewRenderer(cfg config.Config) (domain.Renderer, error) {
	switch cfg.PDF.Engine {
	case "", "chromedp":
		return NewChromedpRenderer(cfg), nil
	case "rod":
		return NewRodRenderer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", cfg.PDF.Engine)
	}
}

// createProfileDir makes a throwaway user-data directory so that every
// browser runs with an isolated profile.
func createProfileDir(cfg config.Config) (string, error) {
	dir, err := os.MkdirTemp(cfg.PDF.UserDataDir, "chromedata-*")
	if err != nil {
		return "", fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	return dir, nil
}

func checkPDF(buf []byte) ([]byte, error) {
	if !bytes.HasPrefix(buf, pdfMagic) {
		return nil, domain.ErrInvalidPDF
	}
	return buf, nil
}
