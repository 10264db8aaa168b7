package handlers

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/xid"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/domain"
	"html2pdf-api/internal/infra/chrome"
	"html2pdf-api/internal/infra/logging"
	"html2pdf-api/internal/infra/pdfinfo"
)

const (
	msgNoFile           = "No file uploaded"
	msgEmptyFile        = "Uploaded file is empty"
	msgNoHTML           = "HTML content is required"
	msgInvalidBody      = "Invalid JSON body"
	msgInvalidFilename  = "Filename contains invalid characters"
	msgProcessingFailed = "Processing failed"

	maxFilenameBytes = 255
)

// ConvertService bundles configuration and the renderer behind the conversion endpoints.
type ConvertService struct {
	Config   *config.Config
	Renderer domain.Renderer
}

// NewConvertService creates a new ConvertService instance.
func NewConvertService(cfg config.Config, r domain.Renderer) *ConvertService {
	return &ConvertService{
		Config:   &cfg,
		Renderer: r,
	}
}

type htmlBase64Request struct {
	HTMLContent string `json:"htmlContent"`
}

type htmlFileRequest struct {
	HTML     string `json:"html"`
	Filename string `json:"filename"`
}

type base64Response struct {
	Base64 string `json:"base64"`
}

// HandleConvertFile converts an uploaded HTML file and returns the PDF as a download.
func (svc *ConvertService) HandleConvertFile(c *fiber.Ctx) error {
	html, err := svc.readUploadedHTML(c)
	if err != nil {
		return err
	}
	filename, err := svc.outputFilename(c.FormValue("filename"))
	if err != nil {
		return err
	}
	pdf, err := svc.render(c, domain.ConversionRequest{HTML: html, Filename: filename})
	if err != nil {
		return err
	}
	return sendPDF(c, pdf, filename)
}

// HandleConvertFileBase64 converts an uploaded HTML file and returns the PDF as Base64.
func (svc *ConvertService) HandleConvertFileBase64(c *fiber.Ctx) error {
	html, err := svc.readUploadedHTML(c)
	if err != nil {
		return err
	}
	pdf, err := svc.render(c, domain.ConversionRequest{HTML: html})
	if err != nil {
		return err
	}
	return sendBase64(c, pdf)
}

// HandleConvertHTMLBase64 converts the htmlContent field of a JSON body and returns Base64.
func (svc *ConvertService) HandleConvertHTMLBase64(c *fiber.Ctx) error {
	var body htmlBase64Request
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgInvalidBody)
	}
	pdf, err := svc.render(c, domain.ConversionRequest{HTML: body.HTMLContent})
	if err != nil {
		return err
	}
	return sendBase64(c, pdf)
}

// HandleConvertHTMLFile converts the html field of a JSON body and returns the PDF as a download.
func (svc *ConvertService) HandleConvertHTMLFile(c *fiber.Ctx) error {
	var body htmlFileRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgInvalidBody)
	}
	filename, err := svc.outputFilename(body.Filename)
	if err != nil {
		return err
	}
	pdf, err := svc.render(c, domain.ConversionRequest{HTML: body.HTML, Filename: filename})
	if err != nil {
		return err
	}
	return sendPDF(c, pdf, filename)
}

// HandleChromeStats exposes the renderer's browser counters.
func (svc *ConvertService) HandleChromeStats(c *fiber.Ctx) error {
	sr, ok := svc.Renderer.(interface{ Stats() chrome.Stats })
	if !ok {
		return c.JSON(fiber.Map{
			"enabled":      false,
			"timeout_secs": svc.Config.PDF.TimeoutSecs,
		})
	}

	s := sr.Stats()
	return c.JSON(fiber.Map{
		"enabled":         true,
		"engine":          s.Engine,
		"launched":        s.Launched,
		"active":          s.Active,
		"failed":          s.Failed,
		"last_failed":     s.LastFailed,
		"timeout_secs":    svc.Config.PDF.TimeoutSecs,
		"network_idle_ms": svc.Config.PDF.NetworkIdleMS,
		"cache_enabled":   svc.Config.Cache.PDFCacheEnabled,
	})
}

// readUploadedHTML stores the multipart "file" field under the upload dir,
// reads it back and removes it before returning.
func (svc *ConvertService) readUploadedHTML(c *fiber.Ctx) (string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, msgNoFile)
	}

	path := filepath.Join(svc.Config.Upload.Dir, xid.New().String()+".html")
	defer removeUpload(path)

	if err := c.SaveFile(fh, path); err != nil {
		logging.Error("Saving upload failed", "error", err, "request_id", requestID(c))
		return "", fiber.NewError(fiber.StatusInternalServerError, msgProcessingFailed)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logging.Error("Reading upload failed", "error", err, "request_id", requestID(c))
		return "", fiber.NewError(fiber.StatusInternalServerError, msgProcessingFailed)
	}

	html := string(data)
	if strings.TrimSpace(html) == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, msgEmptyFile)
	}
	return html, nil
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Removing upload failed", "path", path, "error", err)
	}
}

// outputFilename applies the default name and rejects names that cannot go
// into a Content-Disposition header.
func (svc *ConvertService) outputFilename(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return svc.Config.Output.DefaultFilename, nil
	}
	if len(name) > maxFilenameBytes || strings.ContainsFunc(name, unicode.IsControl) {
		return "", fiber.NewError(fiber.StatusBadRequest, msgInvalidFilename)
	}
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fiber.NewError(fiber.StatusBadRequest, msgInvalidFilename)
	}
	return name, nil
}

// render runs the renderer and maps its errors to HTTP errors.
func (svc *ConvertService) render(c *fiber.Ctx, req domain.ConversionRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, msgNoHTML)
	}

	start := time.Now()
	pdf, err := svc.Renderer.RenderHTMLToPDF(c.UserContext(), req.HTML)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyHTML):
			return nil, fiber.NewError(fiber.StatusBadRequest, msgNoHTML)
		case chrome.IsSessionInterrupted(err):
			logging.Error("Chrome session interrupted", "error", err, "request_id", requestID(c))
		default:
			logging.Error("PDF generation failed", "error", err, "request_id", requestID(c))
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, msgProcessingFailed)
	}

	logging.Info("PDF generated",
		"filename", req.Filename,
		"bytes", len(pdf),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID(c),
	)
	return pdf, nil
}

func sendPDF(c *fiber.Ctx, pdf []byte, filename string) error {
	c.Set(fiber.HeaderContentDisposition, contentDisposition(filename))
	c.Set(fiber.HeaderContentType, "application/pdf")
	if pages, err := pdfinfo.PageCount(pdf); err == nil {
		c.Set("X-PDF-Page-Count", strconv.Itoa(pages))
	} else {
		logging.Debug("Page count unavailable", "error", err)
	}
	return c.Send(pdf)
}

// contentDisposition keeps the name readable instead of URL-escaping it the
// way Ctx.Attachment does. Non-ASCII names get an RFC 5987 filename*
// parameter next to an ASCII fallback.
func contentDisposition(name string) string {
	var b strings.Builder
	b.WriteString(`attachment; filename="`)
	ascii := true
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r >= utf8.RuneSelf:
			ascii = false
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	if !ascii {
		b.WriteString("; filename*=UTF-8''")
		b.WriteString(extValue(name))
	}
	return b.String()
}

// extValue percent-encodes every byte outside the RFC 5987 attr-char set.
func extValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isAttrChar(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0f])
	}
	return b.String()
}

func isAttrChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", ch) >= 0
}

func sendBase64(c *fiber.Ctx, pdf []byte) error {
	return c.JSON(base64Response{Base64: base64.StdEncoding.EncodeToString(pdf)})
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
