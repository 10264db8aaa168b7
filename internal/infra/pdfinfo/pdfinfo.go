// Package pdfinfo reads metadata from rendered PDFs.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

// PageCount returns the number of pages in pdf.
func PageCount(pdf []byte) (n int, err error) {
	if len(pdf) == 0 {
		return 0, errors.New("pdfinfo: empty document")
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfinfo: malformed document: %v", r)
		}
	}()
	return api.PageCount(bytes.NewReader(pdf), nil)
}
