package pdfinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"html2pdf-api/internal/infra/pdfinfo/pdftest"
)

func TestPageCount_RejectsNonPDF(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"html", []byte("<html><body>not a pdf</body></html>")},
		{"truncated header", []byte("%PDF-1.7\n")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := PageCount(tc.in)
			assert.Error(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestPageCount_CountsPages(t *testing.T) {
	for _, pages := range []int{1, 3} {
		n, err := PageCount(pdftest.Pages(pages))
		require.NoError(t, err)
		assert.Equal(t, pages, n)
	}
}
