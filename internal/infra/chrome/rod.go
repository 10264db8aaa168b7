package chrome

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/domain"
	"html2pdf-api/internal/infra/logging"
)

// RodRenderer is the go-rod flavour of the per-request renderer.
type RodRenderer struct {
	cfg   config.Config
	stats *counters
}

// NewRodRenderer creates a RodRenderer.
func NewRodRenderer(cfg config.Config) *RodRenderer {
	return &RodRenderer{cfg: cfg, stats: &counters{engine: "rod"}}
}

// Stats returns the browser lifecycle counters.
func (r *RodRenderer) Stats() Stats { return r.stats.snapshot() }

func (r *RodRenderer) launcher(ctx context.Context, profileDir string) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(true).
		UserDataDir(profileDir).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if r.cfg.PDF.ChromePath != "" {
		l = l.Bin(r.cfg.PDF.ChromePath)
	}
	if r.cfg.PDF.ChromeNoSandbox {
		l = l.NoSandbox(true)
	}
	return l
}

// RenderHTMLToPDF loads html into an isolated browser, waits for the network
// to go idle and prints the page.
func (r *RodRenderer) RenderHTMLToPDF(ctx context.Context, html string) (pdf []byte, err error) {
	if err := (domain.ConversionRequest{HTML: html}).Validate(); err != nil {
		return nil, err
	}

	if timeout := r.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	profileDir, err := createProfileDir(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBrowserLaunch, err)
	}
	defer os.RemoveAll(profileDir)

	l := r.launcher(ctx, profileDir)
	var browser *rod.Browser
	release := r.stats.launch()
	defer func() {
		if browser != nil {
			if cerr := browser.Close(); cerr != nil {
				logging.Debug("Rod browser close returned error", "error", cerr)
			}
		}
		// PID 0 means the process never started; killing it would signal our own group.
		if l.PID() != 0 {
			l.Kill()
		}
		release(err)
	}()

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBrowserLaunch, err)
	}

	browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err = browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBrowserLaunch, err)
	}

	p, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPageLoad, err)
	}

	waitIdle := p.WaitRequestIdle(r.cfg.NetworkIdle(), nil, nil, nil)
	if err = p.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPageLoad, err)
	}
	waitIdle()
	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPageLoad, err)
	}

	reader, err := p.PDF(rodPrintOptions(r.cfg.Paper(), r.cfg.PDF.MarginInches))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPDFRender, err)
	}
	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %w", domain.ErrPDFRender, err)
	}
	return checkPDF(buf)
}

func rodPrintOptions(paper config.PaperSize, margin float64) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(paper.Width),
		PaperHeight:       floatPtr(paper.Height),
		MarginTop:         floatPtr(margin),
		MarginBottom:      floatPtr(margin),
		MarginLeft:        floatPtr(margin),
		MarginRight:       floatPtr(margin),
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
