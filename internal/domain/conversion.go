package domain

import (
	"context"
	"strings"
)

// Renderer turns an HTML document into PDF bytes.
type Renderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// ConversionRequest is one request's input. It lives only for the request.
type ConversionRequest struct {
	HTML     string
	Filename string
}

// Validate checks that there is something to render.
func (r ConversionRequest) Validate() error {
	if strings.TrimSpace(r.HTML) == "" {
		return ErrEmptyHTML
	}
	return nil
}
