package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/domain"
	"html2pdf-api/internal/infra/chrome"
	"html2pdf-api/internal/infra/logging"
)

// CachingRenderer serves repeated documents from a Store and renders the rest
// with the wrapped renderer. Store failures are logged, never returned.
type CachingRenderer struct {
	next  domain.Renderer
	store Store
	ttl   time.Duration
	salt  string
}

// NewCachingRenderer wraps next. The key includes engine, paper and margin so
// a config change does not serve stale layouts.
func NewCachingRenderer(next domain.Renderer, store Store, cfg config.Config) *CachingRenderer {
	paper := cfg.Paper()
	salt := cfg.PDF.Engine + "|" + cfg.PDF.DefaultPaper + "|" +
		strconv.FormatFloat(paper.Width, 'f', 2, 64) + "x" +
		strconv.FormatFloat(paper.Height, 'f', 2, 64) + "|" +
		strconv.FormatFloat(cfg.PDF.MarginInches, 'f', 2, 64)
	return &CachingRenderer{next: next, store: store, ttl: cfg.Cache.PDFCacheTTL, salt: salt}
}

// RenderHTMLToPDF implements domain.Renderer.
func (r *CachingRenderer) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	if err := (domain.ConversionRequest{HTML: html}).Validate(); err != nil {
		return nil, err
	}

	key := r.key(html)
	if cached, err := r.store.Get(ctx, key); err != nil {
		logging.Warn("PDF cache read failed", "error", err)
	} else if cached != nil {
		logging.Info("PDF cache hit", "key", key)
		return cached, nil
	}

	pdf, err := r.next.RenderHTMLToPDF(ctx, html)
	if err != nil {
		return nil, err
	}

	if err := r.store.Set(ctx, key, pdf, r.ttl); err != nil {
		logging.Warn("PDF cache write failed", "error", err)
	}
	return pdf, nil
}

// Stats forwards the wrapped renderer's counters when it has any.
func (r *CachingRenderer) Stats() chrome.Stats {
	if sr, ok := r.next.(interface{ Stats() chrome.Stats }); ok {
		return sr.Stats()
	}
	return chrome.Stats{}
}

func (r *CachingRenderer) key(html string) string {
	h := sha256.New()
	h.Write([]byte(r.salt))
	h.Write([]byte{0})
	h.Write([]byte(html))
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}
